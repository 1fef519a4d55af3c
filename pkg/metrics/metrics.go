package metrics

import "time"

// Collector receives the operational signals of the orchestrator.
// Implementations export them to a backend; NoOpCollector drops them.
type Collector interface {
	RecordLeaseAcquire(kind string, outcome string)
	RecordLeaseRelease(kind string, outcome string)
	RecordLeasesReclaimed(count int)

	RecordTransition(channel string, state string)
	RecordTransaction(txType string, status string)
	RecordSettlement(outcome string, duration time.Duration)
	RecordScreening(flagged bool, duration time.Duration)

	RecordHTTPRequest(method string, route string, status int, duration time.Duration)
	RecordPublish(topic string, success bool, duration time.Duration)
}

const (
	OutcomeAcquired  = "acquired"
	OutcomeRenewed   = "renewed"
	OutcomeContended = "contended"
	OutcomeReleased  = "released"
	OutcomeNoop      = "noop"
	OutcomeNotOwner  = "not_owner"
	OutcomeError     = "error"
)

type NoOpCollector struct{}

func (NoOpCollector) RecordLeaseAcquire(string, string)                    {}
func (NoOpCollector) RecordLeaseRelease(string, string)                    {}
func (NoOpCollector) RecordLeasesReclaimed(int)                            {}
func (NoOpCollector) RecordTransition(string, string)                      {}
func (NoOpCollector) RecordTransaction(string, string)                     {}
func (NoOpCollector) RecordSettlement(string, time.Duration)               {}
func (NoOpCollector) RecordScreening(bool, time.Duration)                  {}
func (NoOpCollector) RecordHTTPRequest(string, string, int, time.Duration) {}
func (NoOpCollector) RecordPublish(string, bool, time.Duration)            {}

var _ Collector = NoOpCollector{}
