package protocol

import (
	"fmt"
	"strings"

	"github.com/go-ble/ble"
)

// sigBaseSuffix is the tail of the Bluetooth SIG base UUID in go-ble's
// undashed string form.
const sigBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID converts a UUID string to the lowercase, undashed form used
// by go-ble. SIG base 128-bit UUIDs are shortened to their 16-bit alias so
// that backends reporting either form resolve to the same key.
func NormalizeUUID(s string) (string, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	u, err := ble.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	out := strings.ToLower(u.String())
	if len(out) == 32 && strings.HasPrefix(out, "0000") && strings.HasSuffix(out, sigBaseSuffix) {
		out = out[4:8]
	}
	return out, nil
}

// MustNormalizeUUID is NormalizeUUID for compile-time constants.
func MustNormalizeUUID(s string) string {
	out, err := NormalizeUUID(s)
	if err != nil {
		panic(err)
	}
	return out
}
