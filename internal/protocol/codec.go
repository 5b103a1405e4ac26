package protocol

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Decode interprets a characteristic payload as a little-endian unsigned
// integer of the characteristic's declared width and converts it according to
// the characteristic's kind. The returned value is a bool, int, Mode or string.
//
// The declared width is enforced: a payload of any other length is rejected
// rather than truncated or zero-extended.
func Decode(ch Characteristic, data []byte) (any, error) {
	fail := func(format string, args ...any) error {
		return &DecodeError{UUID: ch.UUID, Field: ch.Field, Data: data, Reason: fmt.Sprintf(format, args...)}
	}

	if len(data) == 0 {
		return nil, fail("empty payload")
	}

	if ch.Kind == KindString {
		if !utf8.Valid(data) {
			return nil, fail("payload is not valid UTF-8")
		}
		return strings.TrimRight(string(data), "\x00"), nil
	}

	if len(data) != ch.Width {
		return nil, fail("payload is %d bytes, characteristic declares %d", len(data), ch.Width)
	}

	var raw uint64
	for i, b := range data {
		raw |= uint64(b) << (8 * i)
	}

	switch ch.Kind {
	case KindBool:
		return raw != 0, nil
	case KindInt:
		if ch.Signed {
			shift := 64 - 8*uint(ch.Width)
			return int(int64(raw<<shift) >> shift), nil
		}
		if raw > math.MaxInt {
			return nil, fail("unsigned value %d overflows int", raw)
		}
		return int(raw), nil
	case KindMode:
		if raw >= uint64(len(modeNames)) {
			return nil, fail("mode index %d outside table of %d", raw, len(modeNames))
		}
		return Mode(raw), nil
	default:
		return nil, fail("unsupported kind %q", ch.Kind)
	}
}

// Encode is the inverse of Decode. Booleans encode as 0/1, modes as their
// table index, integers as fixed-width little-endian values that must fit the
// characteristic's width and signedness.
func Encode(ch Characteristic, v any) ([]byte, error) {
	fail := func(format string, args ...any) error {
		return &EncodeError{UUID: ch.UUID, Field: ch.Field, Value: v, Reason: fmt.Sprintf(format, args...)}
	}

	var raw uint64
	switch ch.Kind {
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fail("expected bool, got %T", v)
		}
		if b {
			raw = 1
		}
	case KindMode:
		m, ok := v.(Mode)
		if !ok {
			return nil, fail("expected Mode, got %T", v)
		}
		if !m.Valid() {
			return nil, fail("mode not in table")
		}
		raw = uint64(m)
	case KindInt:
		n, ok := toInt64(v)
		if !ok {
			return nil, fail("expected integer, got %T", v)
		}
		if err := checkRange(n, ch.Width, ch.Signed); err != nil {
			return nil, fail("%v", err)
		}
		raw = uint64(n)
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fail("expected string, got %T", v)
		}
		if s == "" {
			return nil, fail("empty string")
		}
		return []byte(s), nil
	default:
		return nil, fail("unsupported kind %q", ch.Kind)
	}

	out := make([]byte, ch.Width)
	for i := range out {
		out[i] = byte(raw >> (8 * i))
	}
	return out, nil
}

func checkRange(n int64, width int, signed bool) error {
	bits := uint(8 * width)
	if signed {
		if bits >= 64 {
			return nil
		}
		lo, hi := -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
		if n < lo || n > hi {
			return fmt.Errorf("out of range [%d, %d]", lo, hi)
		}
		return nil
	}
	if n < 0 {
		return fmt.Errorf("negative value for unsigned field")
	}
	if bits < 64 && uint64(n) >= uint64(1)<<bits {
		return fmt.Errorf("out of range [0, %d]", uint64(1)<<bits-1)
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}
