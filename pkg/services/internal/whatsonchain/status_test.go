package whatsonchain

import (
	"testing"

	"github.com/go-softwarelab/common/pkg/to"
	"github.com/stretchr/testify/assert"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

func TestMapTxStatus(t *testing.T) {
	service := &Service{logger: logging.New().Nop().Logger()}

	tests := map[string]struct {
		item     txStatusItem
		expected wdk.TxStatusDetail
	}{
		"mined with confirmations": {
			item: txStatusItem{
				TxID:          "aa11",
				BlockHash:     "000000000000000001",
				BlockHeight:   800000,
				Confirmations: to.Ptr(12),
			},
			expected: wdk.TxStatusDetail{
				TxID:   "aa11",
				Depth:  to.Ptr(12),
				Status: "mined",
			},
		},
		"known but unmined": {
			item: txStatusItem{TxID: "bb22"},
			expected: wdk.TxStatusDetail{
				TxID:   "bb22",
				Depth:  to.Ptr(0),
				Status: "known",
			},
		},
		"unknown tx": {
			item: txStatusItem{
				TxID:  "cc33",
				Error: to.Ptr("unknown"),
			},
			expected: wdk.TxStatusDetail{
				TxID:   "cc33",
				Status: "unknown",
			},
		},
		"unexpected error still maps to unknown": {
			item: txStatusItem{
				TxID:  "dd44",
				Error: to.Ptr("internal failure"),
			},
			expected: wdk.TxStatusDetail{
				TxID:   "dd44",
				Status: "unknown",
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, service.mapTxStatus(tc.item))
		})
	}
}
