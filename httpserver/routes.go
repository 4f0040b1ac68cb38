// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nanolab/samplectl/settings"
)

// Routes builds the station handler: prometheus metrics under /metrics and
// a read-only JSON view of the sample settings under /settings/{section}.
// Writes stay off the HTTP surface; calibration edits go through the CLI.
func Routes(store *settings.Store, gatherer prometheus.Gatherer) http.Handler {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.HandleFunc("/settings/{section}", settingsHandler(store)).Methods(http.MethodGet)

	return r
}

func settingsHandler(store *settings.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		section := mux.Vars(r)["section"]

		fields, err := store.Section(section)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, settings.ErrUnknownSection) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fields)
	}
}
