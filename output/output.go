// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

// Package output forwards monitored samples to external sinks.
package output

import "time"

// Sample is one monitored reading.
type Sample struct {
	Name  string    `json:"name"`
	Value float64   `json:"value"`
	Unit  string    `json:"unit,omitempty"`
	Time  time.Time `json:"timestamp"`
}

// Output publishes batches of samples.
type Output interface {
	Publish(samples []Sample) error
	Close() error
}
