package metrics

import (
	"context"

	"wagerbook/events"
	"wagerbook/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts submitted operations and created users
type Recorder struct {
	operations   *prometheus.CounterVec
	usersCreated prometheus.Counter
}

// NewRecorder creates the counters and registers them with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerbook_operations_total",
			Help: "Operations submitted, by type and result",
		}, []string{"type", "result"}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wagerbook_users_created_total",
			Help: "Users created by find-or-create",
		}),
	}
	reg.MustRegister(r.operations, r.usersCreated)
	return r
}

// OperationSubmitted implements service.OperationMetrics
func (r *Recorder) OperationSubmitted(opType models.OperationType, result string) {
	r.operations.WithLabelValues(string(opType), result).Inc()
}

// Subscribe counts committed user creations from the event bus
func (r *Recorder) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeUserCreated, func(ctx context.Context, event events.Event) {
		r.usersCreated.Inc()
	})
}
