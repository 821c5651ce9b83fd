package auth

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// MemoryInteractor keeps tokens in memory. It backs tests and single-node
// setups that do not anchor tokens on-chain; production deployments plug in
// an overlay-backed TokenInteractor instead.
type MemoryInteractor struct {
	mu      sync.Mutex
	tokens  map[string]*Token
	counter int
}

// NewMemoryInteractor creates an empty in-memory token store.
func NewMemoryInteractor() *MemoryInteractor {
	return &MemoryInteractor{tokens: make(map[string]*Token)}
}

// FindByPresentationKeyHash returns the live token whose presentation hash
// matches, or nil.
func (m *MemoryInteractor) FindByPresentationKeyHash(_ context.Context, hash []byte) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, token := range m.tokens {
		if bytes.Equal(token.PresentationHash, hash) {
			return cloneToken(token), nil
		}
	}
	return nil, nil
}

// FindByRecoveryKeyHash returns the live token whose recovery hash matches,
// or nil.
func (m *MemoryInteractor) FindByRecoveryKeyHash(_ context.Context, hash []byte) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, token := range m.tokens {
		if bytes.Equal(token.RecoveryHash, hash) {
			return cloneToken(token), nil
		}
	}
	return nil, nil
}

// BuildAndSend stores the token under a fresh synthetic outpoint, removing
// the consumed previous one.
func (m *MemoryInteractor) BuildAndSend(_ context.Context, token *Token, previousOutpoint string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if previousOutpoint != "" {
		delete(m.tokens, previousOutpoint)
	}

	m.counter++
	outpoint := fmt.Sprintf("%064x.0", m.counter)

	stored := cloneToken(token)
	stored.CurrentOutpoint = outpoint
	m.tokens[outpoint] = stored
	return outpoint, nil
}

func cloneToken(t *Token) *Token {
	clone := *t
	return &clone
}
