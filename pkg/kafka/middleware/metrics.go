package kafka_middleware

import (
	"context"
	"time"

	"bankops/pkg/kafka"
	"bankops/pkg/metrics"
)

// MetricsProducerMiddleware records publish outcomes on the collector.
func MetricsProducerMiddleware(collector metrics.Collector) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.PublishFunc) error {
		start := time.Now()
		err := next(ctx, msg)
		collector.RecordPublish(msg.Topic, err == nil, time.Since(start))
		return err
	}
}
