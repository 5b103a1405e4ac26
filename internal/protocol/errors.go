package protocol

import "fmt"

// DecodeError reports a characteristic payload that cannot be turned into a
// state value.
type DecodeError struct {
	UUID   string
	Field  Field
	Data   []byte
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s (%s) from % x: %s", e.Field, e.UUID, e.Data, e.Reason)
}

// EncodeError reports a value that cannot be written to a characteristic.
type EncodeError struct {
	UUID   string
	Field  Field
	Value  any
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s (%s) value %v: %s", e.Field, e.UUID, e.Value, e.Reason)
}
