// Package metrics holds the process-wide Prometheus collectors. Counters are
// registered once at init and incremented from the HTTP layer after the
// corresponding write commits.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MeetingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plenum_meeting_transitions_total",
		Help: "Meeting lifecycle transitions applied, by target status.",
	}, []string{"to_status"})

	MotionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plenum_motions_opened_total",
		Help: "Motions opened for voting.",
	})

	MotionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plenum_motions_closed_total",
		Help: "Motions closed, by decision outcome.",
	}, []string{"decision"})

	BallotsCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plenum_ballots_cast_total",
		Help: "Ballots recorded, by source.",
	}, []string{"source"})
)
