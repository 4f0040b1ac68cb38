// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package interlock

import (
	"github.com/stretchr/testify/mock"
	"periph.io/x/conn/v3"
)

type mockWrapper struct {
	mock.Mock
}

func (m *mockWrapper) Open(file string) (err error) {
	a := m.Called(file)
	return a.Error(0)
}

func (m *mockWrapper) Close() (err error) {
	a := m.Called()
	return a.Error(0)
}

func (m *mockWrapper) Connect(addr int) ([]conn.Conn, error) {
	a := m.Called(addr)
	return a.Get(0).([]conn.Conn), a.Error(1)
}

// Mocking conn.Conn

type mockConn struct {
	mock.Mock
}

func (m *mockConn) String() string {
	a := m.Called()
	return a.String(0)
}

func (m *mockConn) Tx(w, r []byte) error {
	a := m.Called(w, r)
	return a.Error(0)
}

func (m *mockConn) Duplex() conn.Duplex {
	a := m.Called()
	return a.Get(0).(conn.Duplex)
}
