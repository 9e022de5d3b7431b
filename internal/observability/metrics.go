package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CodeAllocationAttempts records how many generate/check rounds a
	// successful code allocation needed. A drifting distribution means the
	// code space is filling up.
	CodeAllocationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "atelier_code_allocation_attempts",
		Help:    "Generate/check attempts per successful short code allocation",
		Buckets: []float64{1, 2, 3, 5, 10},
	})

	// CodeAllocationExhausted counts allocations that ran out of attempts.
	CodeAllocationExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atelier_code_allocation_exhausted_total",
		Help: "Total number of short code allocations that exhausted all attempts",
	})

	// InviteOutcomes counts invitation flow terminations by outcome
	// (attached, dispatched, already_member, forbidden, dispatch_failed).
	InviteOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_invite_outcomes_total",
		Help: "Total invitation flow outcomes",
	}, []string{"outcome"})

	// MembershipMutations counts directory writes by entity and operation.
	MembershipMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_membership_mutations_total",
		Help: "Total membership mutations by entity and operation",
	}, []string{"entity", "operation"})

	// ProfileLookupFailures counts per-member profile resolution failures
	// absorbed during directory listings.
	ProfileLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atelier_profile_lookup_failures_total",
		Help: "Total profile lookups that failed during membership listings",
	})
)
