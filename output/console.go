// SPDX-FileCopyrightText: 2025 nanolab contributors
// SPDX-License-Identifier: Apache-2.0

package output

import "go.uber.org/zap"

// Console logs samples through the station logger.
type Console struct {
	log *zap.Logger
}

func NewConsole(log *zap.Logger) *Console {
	return &Console{log: log}
}

func (c *Console) Publish(samples []Sample) error {
	for _, s := range samples {
		c.log.Info("sample",
			zap.String("name", s.Name),
			zap.Float64("value", s.Value),
			zap.String("unit", s.Unit),
			zap.Time("time", s.Time))
	}
	return nil
}

func (c *Console) Close() error {
	return nil
}
