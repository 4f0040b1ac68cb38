// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package station

import (
	"errors"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"

	"github.com/nanolab/samplectl/output"
	"github.com/nanolab/samplectl/param"
)

var (
	errAlreadyStarted = errors.New("already started")
)

// MonitorOpts configures a Monitor.
type MonitorOpts struct {
	// Namespace for the exported metrics.
	Namespace string

	// SampleRate is how often every watched parameter is read.  Defaults
	// to 1 Hz.
	SampleRate physic.Frequency

	// Outputs receive every batch of samples.  The monitor does not own
	// them; the caller closes them.
	Outputs []output.Output

	Logger     *zap.Logger
	Registerer prometheus.Registerer
	Clock      clock.Clock
}

type monitored struct {
	name   string
	unit   string
	source param.Getter
	gauge  prometheus.Gauge
}

// Monitor periodically samples a set of parameters, exports each as a
// prometheus gauge and forwards the batch to the configured outputs.  A
// parameter whose read fails is logged and skipped for that tick; the others
// still publish.
type Monitor struct {
	opts MonitorOpts

	mu    sync.Mutex
	items []monitored
	done  chan struct{}
	wg    sync.WaitGroup
}

func NewMonitor(opts MonitorOpts) *Monitor {
	if opts.SampleRate == 0 {
		opts.SampleRate = physic.Hertz
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	return &Monitor{opts: opts}
}

// Add registers a parameter under the given display name and unit.
func (m *Monitor) Add(name, unit string, source param.Getter) {
	gauge := promauto.With(m.opts.Registerer).NewGauge(prometheus.GaugeOpts{
		Namespace: m.opts.Namespace,
		Subsystem: "measure",
		Name:      metricName(name),
		Help:      name + " latest sampled value (" + unit + ").",
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, monitored{
		name:   name,
		unit:   unit,
		source: source,
		gauge:  gauge,
	})
}

func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done != nil {
		return errAlreadyStarted
	}

	m.done = make(chan struct{})
	m.wg.Add(1)
	go m.loop(m.done)
	return nil
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	done := m.done
	m.done = nil
	m.mu.Unlock()

	if done != nil {
		close(done)
		m.wg.Wait()
	}
}

func (m *Monitor) loop(done <-chan struct{}) {
	defer m.wg.Done()

	ticker := m.opts.Clock.Ticker(m.opts.SampleRate.Period())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sample()
		case <-done:
			return
		}
	}
}

func (m *Monitor) sample() {
	m.mu.Lock()
	items := make([]monitored, len(m.items))
	copy(items, m.items)
	m.mu.Unlock()

	now := m.opts.Clock.Now()

	samples := make([]output.Sample, 0, len(items))
	for _, item := range items {
		v, err := item.source.Get()
		if err != nil {
			m.opts.Logger.Warn("sample failed",
				zap.String("name", item.name),
				zap.Error(err))
			continue
		}

		item.gauge.Set(v)
		samples = append(samples, output.Sample{
			Name:  item.name,
			Value: v,
			Unit:  item.unit,
			Time:  now,
		})
	}

	if len(samples) == 0 {
		return
	}
	for _, out := range m.opts.Outputs {
		if err := out.Publish(samples); err != nil {
			m.opts.Logger.Warn("publish failed", zap.Error(err))
		}
	}
}

func metricName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	return strings.Trim(mapped, "_")
}
