package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode is the pump operating mode. The numeric value is the index
// transmitted on the wire.
type Mode uint8

const (
	ModeSilent Mode = iota
	ModeRegular
	ModeBoost
)

// modeNames is the wire lookup table; index == encoded byte.
var modeNames = [...]string{"Silent", "Regular", "Boost"}

// Modes returns all known modes in table order.
func Modes() []Mode {
	return []Mode{ModeSilent, ModeRegular, ModeBoost}
}

// Valid reports whether m is present in the mode table.
func (m Mode) Valid() bool {
	return int(m) < len(modeNames)
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
	return modeNames[m]
}

// ParseMode resolves a mode by name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("invalid mode %q: use silent, regular, or boost", s)
}

func (m Mode) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", m)
	}
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
