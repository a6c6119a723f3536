//go:build windows

package keys

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

const keyEventFKeyUp = 0x0002 // KEYEVENTF_KEYUP

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	procKeybdEvent = user32.NewProc("keybd_event")
)

// SystemActuator injects key events through user32!keybd_event.
type SystemActuator struct {
	logger *slog.Logger
}

func NewSystemActuator(logger *slog.Logger) *SystemActuator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemActuator{logger: logger}
}

func (a *SystemActuator) Press(code Code) {
	a.send(code, 0)
}

func (a *SystemActuator) Release(code Code) {
	a.send(code, keyEventFKeyUp)
}

// keybd_event has no return value, Call's error only carries GetLastError noise
func (a *SystemActuator) send(code Code, flags uintptr) {
	a.logger.Debug("key_event", "vk", uint16(code), "key_up", flags == keyEventFKeyUp)
	procKeybdEvent.Call(uintptr(code), 0, flags, 0)
}
