package services

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

const blockHeaderLength = 80

// serializeHeader renders a parsed header back into its 80-byte wire form.
func serializeHeader(header *wdk.BlockHeader) ([]byte, error) {
	prevHash, err := chainhash.NewHashFromHex(header.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("invalid previous block hash %q: %w", header.PrevHash, err)
	}
	merkleRoot, err := chainhash.NewHashFromHex(header.MerkleRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid merkle root %q: %w", header.MerkleRoot, err)
	}
	bits, err := strconv.ParseUint(header.Bits, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid bits value %q: %w", header.Bits, err)
	}

	raw := make([]byte, 0, blockHeaderLength)
	raw = binary.LittleEndian.AppendUint32(raw, header.Version)
	raw = append(raw, prevHash[:]...)
	raw = append(raw, merkleRoot[:]...)
	raw = binary.LittleEndian.AppendUint32(raw, header.Time)
	raw = binary.LittleEndian.AppendUint32(raw, uint32(bits))
	raw = binary.LittleEndian.AppendUint32(raw, header.Nonce)

	return raw, nil
}
