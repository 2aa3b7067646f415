// Package metrics exports store counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements statebox.Recorder on Prometheus collectors.
type Recorder struct {
	mutations     *prometheus.CounterVec
	broadcasts    *prometheus.CounterVec
	emissions     *prometheus.CounterVec
	subscriptions prometheus.Gauge
}

// NewRecorder builds the collectors under namespace and registers them with
// registerer. A nil registerer skips registration.
func NewRecorder(namespace string, registerer prometheus.Registerer) (*Recorder, error) {
	if namespace == "" {
		namespace = "statebox"
	}
	r := &Recorder{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "State mutations by kind and result.",
		}, []string{"kind", "result"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "broadcasts_total",
			Help:      "State broadcasts, including those suppressed as duplicates.",
		}, []string{"result"}),
		emissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "emissions_total",
			Help:      "Subscription deliveries by mode and result.",
		}, []string{"mode", "result"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "active",
			Help:      "Live subscriptions.",
		}),
	}
	if registerer != nil {
		for _, collector := range r.Collectors() {
			if err := registerer.Register(collector); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Collectors lists the collectors owned by the recorder.
func (r *Recorder) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.mutations, r.broadcasts, r.emissions, r.subscriptions}
}

func (r *Recorder) ObserveMutation(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.mutations.WithLabelValues(kind, result).Inc()
}

func (r *Recorder) ObserveBroadcast(suppressed bool) {
	result := "sent"
	if suppressed {
		result = "suppressed"
	}
	r.broadcasts.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveEmission(mode string, delivered bool) {
	result := "delivered"
	if !delivered {
		result = "skipped"
	}
	r.emissions.WithLabelValues(mode, result).Inc()
}

func (r *Recorder) ObserveSubscriptions(active int) {
	r.subscriptions.Set(float64(active))
}
