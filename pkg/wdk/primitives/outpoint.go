package primitives

import (
	"fmt"
	"strconv"
	"strings"
)

// OutpointString represents a transaction ID and output index pair.
// The TXID is given as a hex string followed by a period "." and then the
// output index is given as a decimal integer.
type OutpointString string

// Validate checks if the string is a proper outpoint string.
func (s OutpointString) Validate() error {
	if _, _, err := s.Get(); err != nil {
		return fmt.Errorf("txid as hexstring and numeric output index joined with '.'")
	}
	return nil
}

// Get parses the OutpointString and returns the transaction ID and output index.
func (s OutpointString) Get() (txID string, vout uint32, err error) {
	split := strings.Split(string(s), ".")
	if len(split) != 2 {
		return "", 0, fmt.Errorf("invalid outpoint string format: %s", s)
	}

	vout64, err := strconv.ParseUint(split[1], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("invalid vout index: %w", err)
	}

	return split[0], uint32(vout64), nil
}

// NewOutpointString creates an OutpointString by joining the txid and index
// with a period separator.
func NewOutpointString(txID string, vout uint32) OutpointString {
	return OutpointString(fmt.Sprintf("%s.%d", txID, vout))
}
