package runtime

import (
	stderrors "errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wippyai/prolog-runtime/engine"
	"github.com/wippyai/prolog-runtime/errors"
)

// Init results recorded in the result label.
const (
	resultOK    = "ok"
	resultError = "error"
)

type metrics struct {
	// inits counts Init calls by result: ok, a Kind, or error.
	inits *prometheus.CounterVec
	// exits counts teardowns of a running engine.
	exits prometheus.Counter
	// up is 1 while the engine is initialized.
	up prometheus.Gauge
	// loads counts Load calls by result.
	loads *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		inits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prolog_runtime_init_total",
				Help: "Engine initialization attempts",
			},
			[]string{"result"},
		),
		exits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prolog_runtime_exit_total",
				Help: "Engine teardowns",
			},
		),
		up: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "prolog_runtime_initialized",
				Help: "Whether the engine is initialized",
			},
		),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prolog_runtime_load_total",
				Help: "Source file loads",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		m.inits = register(reg, m.inits)
		m.exits = register(reg, m.exits)
		m.up = register(reg, m.up)
		m.loads = register(reg, m.loads)
	}
	return m
}

// register adds c to reg, reusing a collector registered earlier under the
// same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if stderrors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	engine.Logger().Warn("metric registration failed", zap.Error(err))
	return c
}

func result(err error) string {
	if err == nil {
		return resultOK
	}
	var rerr *errors.Error
	if stderrors.As(err, &rerr) && rerr.Kind != "" {
		return string(rerr.Kind)
	}
	return resultError
}
