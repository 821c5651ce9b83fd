package whatsonchain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

func TestValidateScriptHash(t *testing.T) {
	valid := strings.Repeat("ab", 32)

	require.NoError(t, validateScriptHash(valid))

	assert.Error(t, validateScriptHash(""))
	assert.Error(t, validateScriptHash("abcd"))
	assert.Error(t, validateScriptHash(strings.Repeat("zz", 32)))
}

func TestContainsOutpoint(t *testing.T) {
	details := []wdk.UTXOStatusDetail{
		{TxID: "aa11", Vout: 0, Satoshis: 1000},
		{TxID: "aa11", Vout: 2, Satoshis: 500},
		{TxID: "bb22", Vout: 1, Satoshis: 42},
	}

	found, err := containsOutpoint(details, "aa11.2")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = containsOutpoint(details, "aa11.1")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = containsOutpoint(details, "cc33.0")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = containsOutpoint(details, "malformed")
	require.Error(t, err)
}
