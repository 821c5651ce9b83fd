package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

func genesisHeader() *wdk.BlockHeader {
	return &wdk.BlockHeader{
		Height:     0,
		Hash:       "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
		Version:    1,
		PrevHash:   "0000000000000000000000000000000000000000000000000000000000000000",
		MerkleRoot: "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b",
		Time:       1231006505,
		Bits:       "1d00ffff",
		Nonce:      2083236893,
	}
}

func TestSerializeHeaderGenesis(t *testing.T) {
	header := genesisHeader()

	raw, err := serializeHeader(header)

	require.NoError(t, err)
	require.Len(t, raw, 80)
	assert.Equal(t, header.Hash, txutils.TransactionIDFromRawTx(raw))
}

func TestSerializeHeaderInvalidPrevHash(t *testing.T) {
	header := genesisHeader()
	header.PrevHash = "not-a-hash"

	_, err := serializeHeader(header)

	require.Error(t, err)
	assert.ErrorContains(t, err, "previous block hash")
}

func TestSerializeHeaderInvalidMerkleRoot(t *testing.T) {
	header := genesisHeader()
	header.MerkleRoot = "zz"

	_, err := serializeHeader(header)

	require.Error(t, err)
	assert.ErrorContains(t, err, "merkle root")
}

func TestSerializeHeaderInvalidBits(t *testing.T) {
	header := genesisHeader()
	header.Bits = "xyz"

	_, err := serializeHeader(header)

	require.Error(t, err)
	assert.ErrorContains(t, err, "bits")
}
