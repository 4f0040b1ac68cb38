// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// New builds the station HTTP server and ties its listener to the
// application lifecycle.  With TLS configured the accept loop runs the TLS
// handshake; plaintext otherwise.
func New(lc fx.Lifecycle, handler http.Handler, cfg Config, log *zap.Logger) (*http.Server, error) {
	srv, err := cfg.Server(handler)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lcfg := net.ListenConfig{
				KeepAlive: cfg.KeepAlive,
			}
			ln, err := lcfg.Listen(ctx, "tcp", srv.Addr)
			if err != nil {
				return err
			}

			log.Info("starting HTTP server",
				zap.String("addr", ln.Addr().String()),
				zap.Bool("tls", cfg.TLS != nil))

			go func() {
				err := serve(srv, ln, cfg.TLS != nil)
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server", zap.String("addr", srv.Addr))
			return srv.Shutdown(ctx)
		},
	})
	return srv, nil
}

// serve picks the accept loop.  Serve ignores the server's TLSConfig, so a
// TLS-configured server must go through ServeTLS; the empty file arguments
// make it use the certificates already loaded into TLSConfig.
func serve(srv *http.Server, ln net.Listener, useTLS bool) error {
	if useTLS {
		return srv.ServeTLS(ln, "", "")
	}
	return srv.Serve(ln)
}
