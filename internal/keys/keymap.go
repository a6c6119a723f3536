package keys

import "strings"

// Code is a platform virtual-key code.
type Code uint16

// Windows virtual-key codes for the keys the pad can reach
const (
	VKControl Code = 0x11
	VKW       Code = 0x57
	VKA       Code = 0x41
	VKS       Code = 0x53
	VKD       Code = 0x44
)

// LeftCtrl is the name of the modifier key tracked by Keyboard.
const LeftCtrl = "left ctrl"

// KeyMap maps logical key names to virtual-key codes.
// every key reachable from DirectionMap must be present here
var KeyMap = map[string]Code{
	"w":      VKW,
	"a":      VKA,
	"s":      VKS,
	"d":      VKD,
	LeftCtrl: VKControl,
}

// DirectionMap maps protocol directions to key names, so the app's
// vocabulary does not have to match the keyboard's.
var DirectionMap = map[string]string{
	"up":    "w",
	"down":  "s",
	"left":  "a",
	"right": "d",
}

// Lookup resolves a key name (case-insensitive) to its code.
func Lookup(name string) (Code, bool) {
	code, ok := KeyMap[strings.ToLower(name)]
	return code, ok
}

// ResolveDirection resolves a direction through DirectionMap and then KeyMap.
// It returns the key name as well so callers can log it.
func ResolveDirection(direction string) (string, Code, bool) {
	name, ok := DirectionMap[strings.ToLower(direction)]
	if !ok {
		return "", 0, false
	}
	code, ok := Lookup(name)
	if !ok {
		return name, 0, false
	}
	return name, code, true
}
