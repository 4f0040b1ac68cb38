// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package interlock

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/tca95xx"
)

// expanderWrapper is the slice of the input expander the monitor needs.
// Tests substitute a mock.
type expanderWrapper interface {
	Open(string) error
	Close() error
	Connect(int) ([]conn.Conn, error)
}

type hwWrapper struct {
	m   sync.Mutex
	bus i2c.BusCloser
	dev *tca95xx.Dev
}

func (h *hwWrapper) Open(file string) (err error) {
	h.m.Lock()
	defer h.m.Unlock()

	if h.bus != nil {
		return errAlreadyStarted
	}

	h.bus, err = i2creg.Open(file)
	return err
}

func (h *hwWrapper) Close() (err error) {
	h.m.Lock()
	defer h.m.Unlock()

	if h.dev != nil {
		err = h.dev.Close()
	}

	if h.bus != nil {
		e := h.bus.Close()
		if e != nil && err == nil {
			err = e
		}
	}

	return err
}

func (h *hwWrapper) Connect(addr int) ([]conn.Conn, error) {
	h.m.Lock()
	defer h.m.Unlock()

	if h.bus == nil {
		return nil, fmt.Errorf("invalid state")
	}

	dev, err := tca95xx.New(h.bus, tca95xx.TCA9535, uint16(addr))
	if err != nil {
		return nil, err
	}

	h.dev = dev
	return dev.Conns, nil
}
