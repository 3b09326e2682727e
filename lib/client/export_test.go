package client

import "log/slog"

// NewTestRegistry returns an isolated registry logging to logger.
func NewTestRegistry(logger *slog.Logger) *Registry {
	return newRegistry(logger)
}
