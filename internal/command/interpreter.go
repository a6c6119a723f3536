package command

import (
	"context"
	"log/slog"
	"time"

	"padbridge/internal/keys"
)

// DefaultKeyDelay is the pause between press and release of each strategem key.
const DefaultKeyDelay = 50 * time.Millisecond

// Result tells the caller what Dispatch did with a message.
// It is never sent back to the client.
type Result int

const (
	Handled Result = iota // at least one key was actuated or the modifier was addressed
	Ignored               // known type, but nothing to actuate (unknown key or direction)
	Unknown               // unrecognized type
)

func (r Result) String() string {
	switch r {
	case Handled:
		return "handled"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Interpreter maps messages to Keyboard calls. It keeps no state of its own.
type Interpreter struct {
	keyboard *keys.Keyboard
	keyDelay time.Duration
	logger   *slog.Logger
}

func NewInterpreter(keyboard *keys.Keyboard, keyDelay time.Duration, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	if keyDelay < 0 {
		keyDelay = 0
	}
	return &Interpreter{
		keyboard: keyboard,
		keyDelay: keyDelay,
		logger:   logger,
	}
}

// Keyboard returns the keyboard the interpreter drives.
func (i *Interpreter) Keyboard() *keys.Keyboard {
	return i.keyboard
}

// Dispatch handles one message synchronously.
// Only a strategem blocks, for the key delay between press and release.
func (i *Interpreter) Dispatch(ctx context.Context, msg Message) Result {
	switch msg.Type {
	case TypeStrategem:
		return i.sendSequence(ctx, msg)
	case TypeToggleLeftCtrl:
		down := i.keyboard.ToggleModifier()
		i.logger.Info("toggle_left_ctrl", "left_ctrl_down", down)
		return Handled
	case TypeCtrlDown:
		i.keyboard.SetModifier(true)
		return Handled
	case TypeCtrlUp:
		i.keyboard.SetModifier(false)
		return Handled
	case TypeDirectionDown, TypeDirectionUp:
		return i.sendDirection(msg)
	default:
		i.logger.Info("unknown_message_type",
			"message_type", msg.Type,
		)
		return Unknown
	}
}

func (i *Interpreter) sendDirection(msg Message) Result {
	name, code, ok := keys.ResolveDirection(msg.Direction)
	if !ok {
		i.logger.Warn("unknown_direction",
			"direction", msg.Direction,
			"key", name,
		)
		return Ignored
	}

	down := msg.Type == TypeDirectionDown
	i.logger.Info("direction",
		"direction", msg.Direction,
		"key", name,
		"down", down,
	)
	if down {
		i.keyboard.Press(code)
	} else {
		i.keyboard.Release(code)
	}
	return Handled
}

func (i *Interpreter) sendSequence(ctx context.Context, msg Message) Result {
	name := msg.Name
	if name == "" {
		name = "unknown"
	}
	i.logger.Info("strategem",
		"name", name,
		"sequence", msg.Sequence,
	)

	sent := 0
	for _, key := range msg.Sequence {
		code, ok := keys.Lookup(key)
		if !ok {
			i.logger.Warn("unknown_key",
				"key", key,
				"strategem", name,
			)
			continue
		}

		i.keyboard.Press(code)
		err := sleep(ctx, i.keyDelay)
		i.keyboard.Release(code) // always release what was pressed
		sent++
		if err != nil {
			i.logger.Warn("strategem_interrupted",
				"name", name,
				"sent", sent,
				"error", err.Error(),
			)
			break
		}
	}

	if sent == 0 {
		return Ignored
	}
	return Handled
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
