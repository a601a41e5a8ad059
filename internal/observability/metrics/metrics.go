package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the inbound pipeline.
type PipelineMetrics struct {
	inboundTotal     *prometheus.CounterVec
	autoSendTotal    *prometheus.CounterVec
	deliveryAttempts *prometheus.CounterVec
	replyLatency     *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "pipeline",
			Name:      "inbound_total",
			Help:      "Total inbound webhook events",
		}, []string{"status"}),
		autoSendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "pipeline",
			Name:      "autosend_decisions_total",
			Help:      "Auto-send gate decisions by reason",
		}, []string{"reason"}),
		deliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "gateway",
			Name:      "delivery_attempts_total",
			Help:      "Delivery attempts by endpoint variant and result",
		}, []string{"variant", "status"}),
		replyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "reply",
			Name:      "generation_seconds",
			Help:      "Latency of reply generation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"fallback"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.autoSendTotal, m.deliveryAttempts, m.replyLatency)
	return m
}

func (m *PipelineMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveAutoSend(reason string) {
	if m == nil {
		return
	}
	m.autoSendTotal.WithLabelValues(reason).Inc()
}

func (m *PipelineMetrics) ObserveDelivery(variant, status string) {
	if m == nil {
		return
	}
	m.deliveryAttempts.WithLabelValues(variant, status).Inc()
}

func (m *PipelineMetrics) ObserveReplyLatency(fallback bool, seconds float64) {
	if m == nil {
		return
	}
	label := "false"
	if fallback {
		label = "true"
	}
	m.replyLatency.WithLabelValues(label).Observe(seconds)
}
