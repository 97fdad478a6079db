package vaultgate

import (
	"github.com/nethrall/vaultgate/jwt"
	"github.com/nethrall/vaultgate/password"
	"github.com/nethrall/vaultgate/session"
)

// Engine is the credential and sharing engine. Build one through [Builder];
// a zero Engine is not usable. All methods are safe for concurrent use.
type Engine struct {
	config           Config
	sessionStore     *session.Store
	challengeStore   *challengeStore
	challengeLimiter *challengeLimiter
	resetGate        *resetGate
	audit            *auditDispatcher
	metrics          *Metrics
	passwordHash     *password.Hasher
	assertions       *jwt.Manager
	accounts         AccountProvider
	documents        DocumentStore
	mailer           Mailer
}

// Close drains and stops the audit dispatcher. It does not close the Redis
// client or the providers; those belong to the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
