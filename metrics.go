package statebox

// Recorder receives store counters. pkg/metrics provides a Prometheus
// implementation.
type Recorder interface {
	ObserveMutation(kind string, err error)
	ObserveBroadcast(suppressed bool)
	ObserveEmission(mode string, delivered bool)
	ObserveSubscriptions(active int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveMutation(string, error) {}
func (noopRecorder) ObserveBroadcast(bool)         {}
func (noopRecorder) ObserveEmission(string, bool)  {}
func (noopRecorder) ObserveSubscriptions(int)      {}

// WithRecorder attaches a metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(cfg *storeConfig) {
		if recorder == nil {
			cfg.recorder = noopRecorder{}
			return
		}
		cfg.recorder = recorder
	}
}
