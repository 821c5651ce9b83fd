package bitails

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

func TestBroadcastErrorUnmarshalNumericCode(t *testing.T) {
	var e broadcastError
	require.NoError(t, json.Unmarshal([]byte(`{"code":-27,"message":"Transaction already in the mempool"}`), &e))

	assert.Equal(t, "-27", e.Code)
	assert.Equal(t, "Transaction already in the mempool", e.Message)
}

func TestBroadcastErrorUnmarshalStringCode(t *testing.T) {
	var e broadcastError
	require.NoError(t, json.Unmarshal([]byte(`{"code":"-26","message":"txn-mempool-conflict"}`), &e))

	assert.Equal(t, "-26", e.Code)
	assert.Equal(t, "txn-mempool-conflict", e.Message)
}

func TestClassifyResponseError(t *testing.T) {
	tests := map[string]struct {
		response broadcastResponse
		verify   func(t *testing.T, result wdk.PostedTxID)
	}{
		"no error means success": {
			response: broadcastResponse{TxID: "aa11"},
			verify: func(t *testing.T, result wdk.PostedTxID) {
				assert.Equal(t, wdk.PostedTxIDResultSuccess, result.Result)
				assert.NoError(t, result.Error)
			},
		},
		"already in mempool": {
			response: broadcastResponse{Error: &broadcastError{Code: errorCodeAlreadyInMempool, Message: "already in mempool"}},
			verify: func(t *testing.T, result wdk.PostedTxID) {
				assert.Equal(t, wdk.PostedTxIDResultAlreadyKnown, result.Result)
				assert.True(t, result.AlreadyKnown)
			},
		},
		"double spend": {
			response: broadcastResponse{Error: &broadcastError{Code: errorCodeDoubleSpend, Message: "txn-mempool-conflict"}},
			verify: func(t *testing.T, result wdk.PostedTxID) {
				assert.Equal(t, wdk.PostedTxIDResultDoubleSpend, result.Result)
				assert.True(t, result.DoubleSpend)
			},
		},
		"missing inputs": {
			response: broadcastResponse{Error: &broadcastError{Code: errorCodeMissingInputs, Message: "missing inputs"}},
			verify: func(t *testing.T, result wdk.PostedTxID) {
				assert.Equal(t, wdk.PostedTxIDResultMissingInputs, result.Result)
			},
		},
		"unrecognized code": {
			response: broadcastResponse{Error: &broadcastError{Code: "-22", Message: "tx rejected"}},
			verify: func(t *testing.T, result wdk.PostedTxID) {
				assert.Equal(t, wdk.PostedTxIDResultError, result.Result)
				assert.ErrorContains(t, result.Error, "tx rejected")
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			result := wdk.PostedTxID{TxID: "aa11"}
			classifyResponseError(tc.response, &result)
			tc.verify(t, result)
		})
	}
}
