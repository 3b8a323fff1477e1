package manager

import "github.com/prometheus/client_golang/prometheus"

const (
	opLoad   = "load"
	opReload = "reload"
)

// Metrics are the model lifecycle metrics of one Manager.
type Metrics struct {
	modelsLoaded prometheus.Gauge
	instances    *prometheus.GaugeVec
	loads        *prometheus.CounterVec
}

// NewMetrics creates the lifecycle metrics and registers them with reg.
// A nil reg keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	mt := &Metrics{
		modelsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modelcore",
			Name:      "models_loaded",
			Help:      "Number of models in service.",
		}),
		instances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "modelcore",
			Name:      "model_instances",
			Help:      "Instances in service per model and kind.",
		}, []string{"model", "kind"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelcore",
			Name:      "model_load_total",
			Help:      "Model loads and reloads by result.",
		}, []string{"op", "result"}),
	}
	if reg != nil {
		reg.MustRegister(mt.modelsLoaded, mt.instances, mt.loads)
	}
	return mt
}

func (mt *Metrics) observeLoad(op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	mt.loads.WithLabelValues(op, result).Inc()
}

// refreshMetrics recomputes the gauges from the loaded models.
func (m *Manager) refreshMetrics() {
	m.mu.RLock()
	snap := m.snapshotLocked()
	m.mu.RUnlock()

	m.metrics.instances.Reset()
	loaded := 0
	for name, e := range snap {
		if e.model == nil {
			continue
		}
		if e.state == StateReady {
			loaded++
		}
		set := e.model.Instances()
		if set == nil {
			continue
		}
		for _, inst := range set.Instances {
			m.metrics.instances.WithLabelValues(name, string(inst.Kind())).Inc()
		}
	}
	m.metrics.modelsLoaded.Set(float64(loaded))
}
