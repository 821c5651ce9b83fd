package primitives

import (
	"encoding/hex"
	"encoding/json"
)

// ExplicitByteArray is a byte array, json-serialized to an explicit array of
// [0..255] numbers instead of the default base64 string.
type ExplicitByteArray []byte

// MarshalJSON marshals the byte array to a JSON array of numbers
func (b ExplicitByteArray) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("[]"), nil
	}

	// 3 digits + comma per byte, plus brackets
	result := make([]byte, 0, len(b)*4+2)
	result = append(result, '[')
	for i, v := range b {
		if i > 0 {
			result = append(result, ',')
		}
		switch {
		case v < 10:
			result = append(result, '0'+v)
		case v < 100:
			result = append(result, '0'+v/10, '0'+v%10)
		default:
			result = append(result, '0'+v/100, '0'+(v/10)%10, '0'+v%10)
		}
	}
	result = append(result, ']')

	return result, nil
}

// UnmarshalJSON accepts a JSON array of numbers in [0..255].
func (b *ExplicitByteArray) UnmarshalJSON(data []byte) error {
	var ints []uint8
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	*b = ints
	return nil
}

// Hex returns the hexadecimal representation of the byte array.
func (b ExplicitByteArray) Hex() string {
	return hex.EncodeToString(b)
}
