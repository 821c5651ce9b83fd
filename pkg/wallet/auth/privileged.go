package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// DefaultPrivilegedKeyRetention is how long the privileged key stays in
// memory after it was last derived.
const DefaultPrivilegedKeyRetention = 2 * time.Minute

// PasswordRetriever asks the user for their password, usually through a UI
// prompt. It is invoked when a privileged operation finds the key expired.
type PasswordRetriever func(ctx context.Context) (string, error)

// privilegedDeriver turns a password into the privileged key, re-running
// the pivot decryption against the current token.
type privilegedDeriver func(ctx context.Context, password string) (*ec.PrivateKey, error)

// PrivilegedKeyManager holds the privileged key for a bounded retention
// window and re-derives it on demand after expiry.
type PrivilegedKeyManager struct {
	mu        sync.Mutex
	key       *ec.PrivateKey
	expiresAt time.Time
	retention time.Duration
	retriever PasswordRetriever
	derive    privilegedDeriver
	now       func() time.Time
}

func newPrivilegedKeyManager(retention time.Duration, retriever PasswordRetriever, derive privilegedDeriver) *PrivilegedKeyManager {
	if retention <= 0 {
		retention = DefaultPrivilegedKeyRetention
	}
	return &PrivilegedKeyManager{
		retention: retention,
		retriever: retriever,
		derive:    derive,
		now:       time.Now,
	}
}

// Key returns the privileged key, re-deriving it through the password
// retriever when the retention window has lapsed.
func (m *PrivilegedKeyManager) Key(ctx context.Context) (*ec.PrivateKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.key != nil && m.now().Before(m.expiresAt) {
		m.expiresAt = m.now().Add(m.retention)
		return m.key, nil
	}

	if m.retriever == nil || m.derive == nil {
		return nil, fmt.Errorf("%w: privileged key expired and no password retriever is configured", werr.ErrAuthentication)
	}

	password, err := m.retriever(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: password retrieval failed: %w", werr.ErrTimeout, err)
	}

	key, err := m.derive(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("cannot re-derive privileged key: %w", err)
	}

	m.key = key
	m.expiresAt = m.now().Add(m.retention)
	return key, nil
}

// Provide installs a freshly derived privileged key and starts its
// retention window.
func (m *PrivilegedKeyManager) Provide(key *ec.PrivateKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	m.expiresAt = m.now().Add(m.retention)
}

// DestroyKey purges the privileged key from memory immediately.
func (m *PrivilegedKeyManager) DestroyKey() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = nil
	m.expiresAt = time.Time{}
}
