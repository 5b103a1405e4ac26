package protocol

import (
	"fmt"
	"sort"
	"time"
)

// Characteristic UUIDs of the original four-characteristic firmware.
const (
	PowerUUID             = "7a2623ff-bd92-4c13-be9f-7023aa4ecb85"
	ModeUUID              = "cafe2421-d04c-458f-b1c0-253c6c97e8e8"
	SetTemperatureUUID    = "6aa46711-a29d-4f8a-88e2-044ca1fd03ff"
	ActualTemperatureUUID = "e8ebded3-9dca-45c2-a2d8-ceffb901474d"
)

// DefaultDisconnectDelay is the idle period after which the v1 firmware
// profile drops an unused connection.
const DefaultDisconnectDelay = 120 * time.Second

// Characteristic is one row of the protocol map.
type Characteristic struct {
	UUID              string // normalized, see NormalizeUUID
	Field             Field
	Kind              Kind
	Width             int // payload bytes; 0 for variable-width strings
	Signed            bool
	Notify            bool
	WriteWithResponse bool
}

// Profile is an immutable characteristic map for one firmware revision.
type Profile struct {
	name            string
	disconnectDelay time.Duration
	chars           []Characteristic
	byUUID          map[string]int
	byField         map[Field]int
}

// NewProfile validates chars and builds a profile. UUIDs are normalized;
// an empty Kind is derived from the field and a zero Width defaults to one
// byte for numeric kinds.
func NewProfile(name string, disconnectDelay time.Duration, chars []Characteristic) (*Profile, error) {
	if name == "" {
		return nil, fmt.Errorf("profile name is empty")
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("profile %q has no characteristics", name)
	}

	p := &Profile{
		name:            name,
		disconnectDelay: disconnectDelay,
		chars:           make([]Characteristic, 0, len(chars)),
		byUUID:          make(map[string]int, len(chars)),
		byField:         make(map[Field]int, len(chars)),
	}

	for i, ch := range chars {
		uuid, err := NormalizeUUID(ch.UUID)
		if err != nil {
			return nil, fmt.Errorf("profile %q characteristic %d: %w", name, i, err)
		}
		ch.UUID = uuid

		want, err := KindOf(ch.Field)
		if err != nil {
			return nil, fmt.Errorf("profile %q characteristic %s: %w", name, uuid, err)
		}
		if ch.Kind == "" {
			ch.Kind = want
		}
		if ch.Kind != want {
			return nil, fmt.Errorf("profile %q characteristic %s: field %s requires kind %s, got %s", name, uuid, ch.Field, want, ch.Kind)
		}

		switch {
		case ch.Kind == KindString:
			if ch.Width != 0 {
				return nil, fmt.Errorf("profile %q characteristic %s: string fields are variable width", name, uuid)
			}
		case ch.Width == 0:
			ch.Width = 1
		case ch.Width < 0 || ch.Width > 8:
			return nil, fmt.Errorf("profile %q characteristic %s: width %d outside 1..8", name, uuid, ch.Width)
		}
		if ch.Signed && ch.Kind != KindInt {
			return nil, fmt.Errorf("profile %q characteristic %s: only int fields can be signed", name, uuid)
		}

		if _, dup := p.byUUID[uuid]; dup {
			return nil, fmt.Errorf("profile %q: duplicate characteristic %s", name, uuid)
		}
		if _, dup := p.byField[ch.Field]; dup {
			return nil, fmt.Errorf("profile %q: field %s mapped twice", name, ch.Field)
		}

		p.byUUID[uuid] = len(p.chars)
		p.byField[ch.Field] = len(p.chars)
		p.chars = append(p.chars, ch)
	}

	return p, nil
}

func (p *Profile) Name() string { return p.name }

// DisconnectDelay is the firmware's recommended idle timeout. Zero means the
// profile does not suggest one.
func (p *Profile) DisconnectDelay() time.Duration { return p.disconnectDelay }

// Characteristics returns the map rows in declaration order.
func (p *Profile) Characteristics() []Characteristic {
	out := make([]Characteristic, len(p.chars))
	copy(out, p.chars)
	return out
}

// Notifiable returns the characteristics that are subscribed after connect.
func (p *Profile) Notifiable() []Characteristic {
	var out []Characteristic
	for _, ch := range p.chars {
		if ch.Notify {
			out = append(out, ch)
		}
	}
	return out
}

// Lookup finds the characteristic for a UUID in any accepted notation.
func (p *Profile) Lookup(uuid string) (Characteristic, bool) {
	key, err := NormalizeUUID(uuid)
	if err != nil {
		return Characteristic{}, false
	}
	i, ok := p.byUUID[key]
	if !ok {
		return Characteristic{}, false
	}
	return p.chars[i], true
}

// ByField finds the characteristic that carries f.
func (p *Profile) ByField(f Field) (Characteristic, bool) {
	i, ok := p.byField[f]
	if !ok {
		return Characteristic{}, false
	}
	return p.chars[i], true
}

// V1 is the original firmware: power, mode, set and actual temperature, one
// byte each. Set temperature is written with response.
func V1() *Profile {
	p, err := NewProfile("v1", DefaultDisconnectDelay, []Characteristic{
		{UUID: PowerUUID, Field: FieldPower, Kind: KindBool, Width: 1, Notify: true},
		{UUID: ModeUUID, Field: FieldMode, Kind: KindMode, Width: 1, Notify: true},
		{UUID: SetTemperatureUUID, Field: FieldSetTemperature, Kind: KindInt, Width: 1, Notify: true, WriteWithResponse: true},
		{UUID: ActualTemperatureUUID, Field: FieldActualTemperature, Kind: KindInt, Width: 1, Notify: true},
	})
	if err != nil {
		panic(err)
	}
	return p
}

var builtins = map[string]func() *Profile{
	"v1": V1,
}

// Builtin returns a built-in profile by name.
func Builtin(name string) (*Profile, error) {
	ctor, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (built-in: %v)", name, BuiltinNames())
	}
	return ctor(), nil
}

// BuiltinNames lists built-in profile names, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
