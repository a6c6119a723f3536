package keys

import (
	"log/slog"
	"slices"
	"sync"
)

// Actuator issues raw key events to the OS input subsystem.
// Each call is exactly one event; implementations must not buffer or coalesce.
// There is no success feedback: the platform either injects the event or silently drops it.
type Actuator interface {
	Press(code Code)
	Release(code Code)
}

// Keyboard wraps an Actuator and owns the Left Ctrl modifier state.
// The modifier flag reflects the last event this process issued, it is never read back from the OS.
// Left Ctrl always goes through the modifier state, whichever method asks for it.
type Keyboard struct {
	actuator Actuator
	logger   *slog.Logger

	mu       sync.Mutex // guards ctrlDown, held and the events that change them
	ctrlDown bool
	held     map[Code]struct{} // non-modifier keys pressed and not yet released
}

// constructor for Keyboard, modifier starts released
func NewKeyboard(actuator Actuator, logger *slog.Logger) *Keyboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Keyboard{
		actuator: actuator,
		logger:   logger,
		held:     make(map[Code]struct{}),
	}
}

// Press issues a single key-down event.
// For Left Ctrl it is SetModifier(true): no event if already held.
func (k *Keyboard) Press(code Code) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if code == VKControl {
		k.setModifierLocked(true)
		return
	}
	k.actuator.Press(code)
	k.held[code] = struct{}{}
}

// Release issues a single key-up event.
// For Left Ctrl it is SetModifier(false): no event if not held.
func (k *Keyboard) Release(code Code) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if code == VKControl {
		k.setModifierLocked(false)
		return
	}
	k.actuator.Release(code)
	delete(k.held, code)
}

// SetModifier forces Left Ctrl to the requested state.
// It emits an event only when the state changes and reports whether it did.
func (k *Keyboard) SetModifier(pressed bool) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.setModifierLocked(pressed)
}

// ToggleModifier flips Left Ctrl and returns the new state.
func (k *Keyboard) ToggleModifier() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.setModifierLocked(!k.ctrlDown)
	return k.ctrlDown
}

// ModifierDown reports whether this process currently holds Left Ctrl.
func (k *Keyboard) ModifierDown() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ctrlDown
}

// Held returns the non-modifier keys currently pressed, in code order.
func (k *Keyboard) Held() []Code {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.heldLocked()
}

// ReleaseAll releases every key this process still holds, modifier last.
// Used on shutdown.
func (k *Keyboard) ReleaseAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, code := range k.heldLocked() {
		k.actuator.Release(code)
		delete(k.held, code)
		k.logger.Info("key_released_on_shutdown", "vk", uint16(code))
	}
	if k.setModifierLocked(false) {
		k.logger.Info("modifier_released_on_shutdown")
	}
}

// caller must hold k.mu
func (k *Keyboard) heldLocked() []Code {
	codes := make([]Code, 0, len(k.held))
	for code := range k.held {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// caller must hold k.mu
func (k *Keyboard) setModifierLocked(pressed bool) bool {
	if pressed == k.ctrlDown {
		return false
	}
	if pressed {
		k.logger.Info("left_ctrl_down")
		k.actuator.Press(VKControl)
	} else {
		k.logger.Info("left_ctrl_up")
		k.actuator.Release(VKControl)
	}
	k.ctrlDown = pressed
	return true
}
