package command

import "encoding/json"

// message types understood by the bridge
const (
	TypeStrategem      = "strategem"
	TypeToggleLeftCtrl = "toggle_left_ctrl"
	TypeCtrlDown       = "ctrl_down"
	TypeCtrlUp         = "ctrl_up"
	TypeDirectionDown  = "direction_down"
	TypeDirectionUp    = "direction_up"
)

// Message is one decoded line from the app. Only the fields used by Type are set.
type Message struct {
	Type      string      `json:"type"`                // basic routing based on type field
	Name      string      `json:"name,omitempty"`      // strategem display name
	Sequence  KeySequence `json:"sequence,omitempty"`  // strategem key names, in order
	Direction string      `json:"direction,omitempty"` // up/down/left/right
}

// KeySequence is a list of key names. A non-string element does not fail the
// whole message: it is kept as its raw JSON text, which no key name matches,
// so only that element is skipped.
type KeySequence []string

func (s *KeySequence) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(KeySequence, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err != nil {
			name = string(item)
		}
		out = append(out, name)
	}
	*s = out
	return nil
}
