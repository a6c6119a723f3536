//go:build !windows

package keys

import "log/slog"

// SystemActuator on non-Windows hosts only logs the requested events.
// Key injection is implemented for Windows hosts.
type SystemActuator struct {
	logger *slog.Logger
}

func NewSystemActuator(logger *slog.Logger) *SystemActuator {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("key_injection_unsupported", "detail", "key events will be logged only")
	return &SystemActuator{logger: logger}
}

func (a *SystemActuator) Press(code Code) {
	a.logger.Debug("key_event", "vk", uint16(code), "key_up", false)
}

func (a *SystemActuator) Release(code Code) {
	a.logger.Debug("key_event", "vk", uint16(code), "key_up", true)
}
