package vaultgate

import (
	"sync/atomic"
)

// MetricID names one engine counter. IDs are stable within a release but
// not across releases; snapshot by name via MetricName for export.
type MetricID uint16

const (
	MetricAccountCreated MetricID = iota
	MetricAccountCreateDuplicate
	MetricSignInFailure
	MetricChallengeIssued
	MetricChallengeResent
	MetricChallengeCooldownHit
	MetricChallengeVerified
	MetricChallengeVerifyFailed
	MetricChallengeRateLimited
	MetricDispatchFailure
	MetricSessionEstablished
	MetricSessionDestroyed
	MetricSessionLookupMiss
	MetricResetRequested
	MetricResetConfirmed
	MetricResetRejected
	MetricAccessGranted
	MetricAccessRevoked
	MetricDocumentRenamed
	MetricDocumentDeleted
	MetricMutationForbidden
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricAccountCreated:         "account_created",
	MetricAccountCreateDuplicate: "account_create_duplicate",
	MetricSignInFailure:          "sign_in_failure",
	MetricChallengeIssued:        "challenge_issued",
	MetricChallengeResent:        "challenge_resent",
	MetricChallengeCooldownHit:   "challenge_cooldown_hit",
	MetricChallengeVerified:      "challenge_verified",
	MetricChallengeVerifyFailed:  "challenge_verify_failed",
	MetricChallengeRateLimited:   "challenge_rate_limited",
	MetricDispatchFailure:        "challenge_dispatch_failure",
	MetricSessionEstablished:     "session_established",
	MetricSessionDestroyed:       "session_destroyed",
	MetricSessionLookupMiss:      "session_lookup_miss",
	MetricResetRequested:         "password_reset_requested",
	MetricResetConfirmed:         "password_reset_confirmed",
	MetricResetRejected:          "password_reset_rejected",
	MetricAccessGranted:          "share_access_granted",
	MetricAccessRevoked:          "share_access_revoked",
	MetricDocumentRenamed:        "document_renamed",
	MetricDocumentDeleted:        "document_deleted",
	MetricMutationForbidden:      "share_mutation_forbidden",
}

// MetricName returns the stable export name for an ID, or "" if unknown.
func MetricName(id MetricID) string {
	if id >= metricIDCount {
		return ""
	}
	return metricNames[id]
}

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free in-process counters. A disabled Metrics accepts
// every call and records nothing.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	return s
}
