package whatsonchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsFold(t *testing.T) {
	assert.True(t, containsFold("257: TXN-ALREADY-KNOWN", "txn-already-known"))
	assert.True(t, containsFold("Transaction already in the mempool", "already in mempool", "already in the mempool"))
	assert.True(t, containsFold("rejected: Missing Inputs", "missing inputs"))
	assert.False(t, containsFold("rejected: bad-txns-nonfinal", "missing inputs", "txn-mempool-conflict"))
}
