package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters incremented by the services; the HTTP-level metrics live
// with the middleware that records them.
var (
	// ValidationsTotal counts door validations by resulting ticket status.
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickbol_ticket_validations_total",
			Help: "Door validations by resulting ticket status",
		},
		[]string{"status"},
	)

	// TicketsIssuedTotal counts tickets created by the issuer.
	TicketsIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickbol_tickets_issued_total",
			Help: "Tickets issued across all purchases",
		},
	)
)
