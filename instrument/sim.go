// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"fmt"
	"sync"

	"github.com/nanolab/samplectl/param"
)

// SimSource is an in-memory voltage source used in tests and --sim runs.
type SimSource struct {
	name  string
	chans []*param.Manual
}

// NewSimSource makes a simulated source with the given channel count.
func NewSimSource(name string, channels int) *SimSource {
	s := &SimSource{
		name:  name,
		chans: make([]*param.Manual, channels),
	}
	for i := range s.chans {
		s.chans[i] = param.NewManual(fmt.Sprintf("%s ch%02d", name, i+1), "V")
	}
	return s
}

func (s *SimSource) Channels() int {
	return len(s.chans)
}

func (s *SimSource) Channel(n int) (param.Parameter, error) {
	if n < 1 || n > len(s.chans) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchChannel, n)
	}
	return s.chans[n-1], nil
}

func (s *SimSource) LastKnown(n int) (float64, error) {
	if n < 1 || n > len(s.chans) {
		return 0, fmt.Errorf("%w: %d", ErrNoSuchChannel, n)
	}
	return s.chans[n-1].Get()
}

// SimLockin is an in-memory lock-in amplifier.  The signal components are
// plain settable fields so tests can drive any reading they need.
type SimLockin struct {
	mu        sync.Mutex
	x         float64
	r         float64
	display   string
	amplitude *param.Manual
}

// NewSimLockin makes a simulated lock-in displaying X.
func NewSimLockin(name string) *SimLockin {
	return &SimLockin{
		display:   "X",
		amplitude: param.NewManual(name+" amplitude", "V"),
	}
}

func (l *SimLockin) X() (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.x, nil
}

func (l *SimLockin) R() (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.r, nil
}

func (l *SimLockin) Display() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.display, nil
}

func (l *SimLockin) Amplitude() param.Parameter {
	return l.amplitude
}

// SetSignal drives the simulated in-phase and magnitude readings.
func (l *SimLockin) SetSignal(x, r float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.x = x
	l.r = r
}

// SetDisplay switches the simulated display mode.
func (l *SimLockin) SetDisplay(display string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.display = display
}
