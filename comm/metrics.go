package comm

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics counts the messages and payload elements a World delivers, by tag.
// A nil *Metrics counts nothing.
type Metrics struct {
	messages *prometheus.CounterVec
	elements *prometheus.CounterVec
}

// NewMetrics creates the message counters and registers them with reg, if
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pmerge",
			Name:      "messages_total",
			Help:      "Messages sent between ranks, by tag.",
		}, []string{"tag"}),
		elements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pmerge",
			Name:      "elements_total",
			Help:      "Payload elements sent between ranks, by tag.",
		}, []string{"tag"}),
	}
	if reg != nil {
		reg.MustRegister(m.messages, m.elements)
	}
	return m
}

func (m *Metrics) observe(tag Tag, n int) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(tag.String()).Inc()
	m.elements.WithLabelValues(tag.String()).Add(float64(n))
}

// Count returns how many messages with tag were sent, and how many payload
// elements they carried in total.
func (m *Metrics) Count(tag Tag) (messages, elements int64) {
	if m == nil {
		return 0, 0
	}
	return counterValue(m.messages.WithLabelValues(tag.String())),
		counterValue(m.elements.WithLabelValues(tag.String()))
}

func counterValue(c prometheus.Counter) int64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return int64(pb.GetCounter().GetValue())
}
