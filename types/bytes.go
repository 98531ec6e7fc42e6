package types

import (
	"encoding/json"
	"fmt"
)

// ByteArray is a byte slice that encodes to JSON as an array of numbers
// (e.g. [1,2,255]) instead of the base64 string encoding/json uses by default.
// BRC-100 wallets and message relays exchange transactions and binary
// payloads in this form.
type ByteArray []byte

// MarshalJSON encodes the bytes as a JSON number array
func (b ByteArray) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}

	ints := make([]uint16, len(b))
	for i, v := range b {
		ints[i] = uint16(v)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON accepts either a JSON number array or a base64 string
func (b *ByteArray) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var raw []byte
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("invalid base64 byte string: %w", err)
		}
		*b = raw
		return nil
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("invalid byte array: %w", err)
	}

	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte array element %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
