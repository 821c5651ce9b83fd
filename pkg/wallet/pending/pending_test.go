package pending

import (
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
)

func TestSaveAndGet(t *testing.T) {
	repo := NewLocalRepository(logging.New().Nop().Logger(), time.Minute)
	defer repo.Close()

	action := &SignAction{Tx: &transaction.Transaction{Version: 1}}
	require.NoError(t, repo.Save("ref-1", action))

	got, err := repo.Get("ref-1")
	require.NoError(t, err)
	assert.Same(t, action, got)
}

func TestGetUnknownReference(t *testing.T) {
	repo := NewLocalRepository(logging.New().Nop().Logger(), time.Minute)
	defer repo.Close()

	_, err := repo.Get("missing")
	require.ErrorContains(t, err, "missing")
}

func TestSaveRequiresReferenceAndAction(t *testing.T) {
	repo := NewLocalRepository(logging.New().Nop().Logger(), time.Minute)
	defer repo.Close()

	require.Error(t, repo.Save("", &SignAction{}))
	require.Error(t, repo.Save("ref", nil))
}

func TestDeleteRemovesEntry(t *testing.T) {
	repo := NewLocalRepository(logging.New().Nop().Logger(), time.Minute)
	defer repo.Close()

	require.NoError(t, repo.Save("ref-1", &SignAction{}))
	require.NoError(t, repo.Delete("ref-1"))

	_, err := repo.Get("ref-1")
	require.Error(t, err)
}

func TestEntriesExpire(t *testing.T) {
	repo := NewLocalRepository(logging.New().Nop().Logger(), 20*time.Millisecond)
	defer repo.Close()

	require.NoError(t, repo.Save("ref-1", &SignAction{}))

	require.Eventually(t, func() bool {
		_, err := repo.Get("ref-1")
		return err != nil
	}, time.Second, 5*time.Millisecond)
}
