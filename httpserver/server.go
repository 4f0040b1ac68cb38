// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

// Package httpserver exposes the station's metrics and a read-only view of
// the sample settings over HTTP.
package httpserver

import (
	"net/http"
	"time"

	"github.com/xmidt-org/arrange/arrangetls"
	"github.com/xmidt-org/httpaux"
	serveraux "github.com/xmidt-org/httpaux/server"
)

// Config describes the station HTTP listener.
type Config struct {
	// Address corresponds to http.Server.Addr.
	Address string `mapstructure:"address"`

	// ReadTimeout corresponds to http.Server.ReadTimeout.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout corresponds to http.Server.WriteTimeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// IdleTimeout corresponds to http.Server.IdleTimeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// KeepAlive corresponds to net.ListenConfig.KeepAlive.
	KeepAlive time.Duration `mapstructure:"keep_alive"`

	// Headers are emitted on every response from this server.
	Headers http.Header `mapstructure:"headers"`

	// TLS is the optional TLS configuration.  If set, the resulting
	// server speaks HTTPS.
	TLS *arrangetls.Config `mapstructure:"tls"`
}

// Server builds an *http.Server around the handler, decorating every
// response with the configured headers.
func (c Config) Server(h http.Handler) (server *http.Server, err error) {
	headers := httpaux.NewHeader(c.Headers)
	handler := serveraux.Header(headers.SetTo)(h)

	server = &http.Server{
		Addr:         c.Address,
		Handler:      handler,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  c.IdleTimeout,
	}

	server.TLSConfig, err = c.TLS.New()

	return
}
