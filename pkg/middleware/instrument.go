package middleware

import (
	"net/http"
	"time"

	"bankops/pkg/metrics"

	"github.com/julienschmidt/httprouter"
)

// InstrumentRoute records latency and status of one registered route. The route
// pattern is used as the label so ids in the path do not explode cardinality.
func InstrumentRoute(collector metrics.Collector, method, route string, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		h(rw, r, ps)
		collector.RecordHTTPRequest(method, route, rw.statusCode, time.Since(start))
	}
}
