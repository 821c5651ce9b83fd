package permissions

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	sdk "github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/jellydator/ttlcache/v3"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/wallet"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// metadataProtocol encrypts wallet metadata (descriptions, custom
// instructions) at rest when metadata encryption is enabled.
var metadataProtocol = sdk.Protocol{
	SecurityLevel: sdk.SecurityLevelEveryAppAndCounterparty,
	Protocol:      "admin metadata encryption",
}

// DefaultRequestTimeout bounds how long a permission request waits for a
// grant or denial.
const DefaultRequestTimeout = 30 * time.Second

// Config tunes the permission policy.
type Config struct {
	// SeekPermissions controls whether cache misses raise a request. When
	// false, a miss is denied outright.
	SeekPermissions bool

	// EncryptWalletMetadata encrypts action descriptions and custom
	// instructions before they reach storage.
	EncryptWalletMetadata bool

	// GrantExpiry and SpendingExpiry override the default token lifetimes.
	GrantExpiry    time.Duration
	SpendingExpiry time.Duration

	// RequestTimeout bounds the wait for a grant or denial.
	RequestTimeout time.Duration

	Logger *slog.Logger
}

// Manager wraps a wallet and enforces per-originator permissions on the
// full BRC-100 surface.
type Manager struct {
	wallet *wallet.Wallet
	cfg    Config
	logger *slog.Logger

	tokens map[Category]*ttlcache.Cache[string, *Token]

	callbacksMu sync.RWMutex
	callbacks   map[Category][]RequestCallback

	pendingMu sync.Mutex
	pending   map[uint64]*Request

	nextRequestID atomic.Uint64
}

// NewManager wraps the wallet with permission enforcement.
func NewManager(underlying *wallet.Wallet, cfg Config) (*Manager, error) {
	if underlying == nil {
		return nil, fmt.Errorf("underlying wallet must be provided")
	}

	if cfg.GrantExpiry <= 0 {
		cfg.GrantExpiry = DefaultGrantExpiry
	}
	if cfg.SpendingExpiry <= 0 {
		cfg.SpendingExpiry = DefaultSpendingExpiry
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	tokens := make(map[Category]*ttlcache.Cache[string, *Token])
	for _, category := range []Category{CategoryProtocol, CategoryBasket, CategoryCertificate, CategorySpending} {
		cache := ttlcache.New[string, *Token]()
		go cache.Start()
		tokens[category] = cache
	}

	return &Manager{
		wallet:    underlying,
		cfg:       cfg,
		logger:    logging.Child(cfg.Logger, "permissions"),
		tokens:    tokens,
		callbacks: make(map[Category][]RequestCallback),
		pending:   make(map[uint64]*Request),
	}, nil
}

// Close stops the token cache eviction loops.
func (m *Manager) Close() {
	for _, cache := range m.tokens {
		cache.Stop()
	}
}

// BindCallback registers a consent callback for a category.
func (m *Manager) BindCallback(category Category, callback RequestCallback) {
	m.callbacksMu.Lock()
	defer m.callbacksMu.Unlock()
	m.callbacks[category] = append(m.callbacks[category], callback)
}

// isAdmin reports whether the originator is the internal admin.
func (m *Manager) isAdmin(originator string) bool {
	return originator == wdk.AdminOriginator
}

// delegateOriginator maps the admin originator onto the wallet's internal
// path; other originators pass through.
func (m *Manager) delegateOriginator(originator string) string {
	if m.isAdmin(originator) {
		return ""
	}
	return originator
}

// auditLabel is injected on every non-admin outgoing action.
func auditLabel(originator string) string {
	return "admin originator " + originator
}

// findToken returns the cached valid token, consuming nothing.
func (m *Manager) findToken(category Category, originator, resource string) *Token {
	item := m.tokens[category].Get(cacheKey(originator, resource))
	if item == nil {
		return nil
	}
	token := item.Value()
	if token.Expired(time.Now()) {
		m.tokens[category].Delete(cacheKey(originator, resource))
		return nil
	}
	return token
}

// ensure resolves a permission: cached grant, request flow, or denial.
func (m *Manager) ensure(ctx context.Context, category Category, originator, resource string, satoshis int64, reference string) error {
	if m.isAdmin(originator) {
		return nil
	}

	if token := m.findToken(category, originator, resource); token != nil {
		if category != CategorySpending || token.AmountLeft >= satoshis {
			return nil
		}
	}

	if !m.cfg.SeekPermissions {
		return fmt.Errorf("%w: originator %q has no %s grant for %q",
			werr.ErrPermissionDenied, originator, category, resource)
	}

	granted, err := m.requestPermission(ctx, category, originator, resource, satoshis, reference)
	if err != nil {
		return err
	}
	if !granted {
		if reference != "" {
			m.abortDeniedAction(ctx, reference)
		}
		return fmt.Errorf("%w: originator %q was denied %s for %q",
			werr.ErrPermissionDenied, originator, category, resource)
	}
	return nil
}

// requestPermission dispatches a request to the bound callbacks and waits
// for its resolution.
func (m *Manager) requestPermission(ctx context.Context, category Category, originator, resource string, satoshis int64, reference string) (bool, error) {
	request := &Request{
		ID:         m.nextRequestID.Add(1),
		Category:   category,
		Originator: originator,
		Resource:   resource,
		Satoshis:   satoshis,
		Reference:  reference,
		result:     make(chan bool, 1),
	}

	m.pendingMu.Lock()
	m.pending[request.ID] = request
	m.pendingMu.Unlock()

	m.callbacksMu.RLock()
	callbacks := append([]RequestCallback(nil), m.callbacks[category]...)
	m.callbacksMu.RUnlock()

	if len(callbacks) == 0 {
		m.removePending(request.ID)
		return false, fmt.Errorf("%w: no consent callback is bound for %s",
			werr.ErrPermissionDenied, category)
	}

	m.logger.InfoContext(ctx, "permission requested",
		slog.Uint64("requestID", request.ID),
		slog.String("category", string(category)),
		slog.String("originator", originator),
		slog.String("resource", resource))

	for _, callback := range callbacks {
		go callback(*request)
	}

	timeout, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	select {
	case granted := <-request.result:
		return granted, nil
	case <-timeout.Done():
		m.removePending(request.ID)
		return false, fmt.Errorf("%w: permission request %d was not resolved",
			werr.ErrTimeout, request.ID)
	}
}

// GrantPermission resolves a pending request positively and caches the
// resulting token.
func (m *Manager) GrantPermission(requestID uint64) error {
	request := m.removePending(requestID)
	if request == nil {
		return werr.InvalidParameterf("requestID", "a pending permission request, %d is not", requestID)
	}

	expiry := m.cfg.GrantExpiry
	if request.Category == CategorySpending {
		expiry = m.cfg.SpendingExpiry
	}

	token := &Token{
		Category:         request.Category,
		Originator:       request.Originator,
		Resource:         request.Resource,
		ExpiresAt:        time.Now().Add(expiry),
		AuthorizedAmount: request.Satoshis,
		AmountLeft:       request.Satoshis,
	}
	m.tokens[request.Category].Set(cacheKey(request.Originator, request.Resource), token, expiry)

	request.result <- true
	return nil
}

// DenyPermission resolves a pending request negatively.
func (m *Manager) DenyPermission(requestID uint64) error {
	request := m.removePending(requestID)
	if request == nil {
		return werr.InvalidParameterf("requestID", "a pending permission request, %d is not", requestID)
	}
	request.result <- false
	return nil
}

func (m *Manager) removePending(requestID uint64) *Request {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	request, ok := m.pending[requestID]
	if !ok {
		return nil
	}
	delete(m.pending, requestID)
	return request
}

// TrackSpending decrements an originator's authorized spending budget.
func (m *Manager) TrackSpending(originator string, satoshis int64) error {
	if m.isAdmin(originator) {
		return nil
	}

	token := m.findToken(CategorySpending, originator, string(CategorySpending))
	if token == nil {
		return fmt.Errorf("%w: originator %q has no spending authorization",
			werr.ErrPermissionDenied, originator)
	}
	if token.AmountLeft < satoshis {
		return fmt.Errorf("%w: originator %q exceeded its authorized amount",
			werr.ErrPermissionDenied, originator)
	}
	token.AmountLeft -= satoshis
	return nil
}

// abortDeniedAction aborts a created action whose permission was denied.
func (m *Manager) abortDeniedAction(ctx context.Context, reference string) {
	_, err := m.wallet.AbortAction(ctx, wdk.AbortActionArgs{
		Reference: primitives.Base64String(reference),
	}, "")
	if err != nil {
		m.logger.WarnContext(ctx, "failed to abort denied action",
			logging.Reference(reference), logging.Error(err))
	}
}

// encryptMetadata encrypts a metadata string under the admin protocol and
// returns it base64-encoded. Empty strings pass through.
func (m *Manager) encryptMetadata(ctx context.Context, value string) (string, error) {
	if !m.cfg.EncryptWalletMetadata || value == "" {
		return value, nil
	}

	result, err := m.wallet.Encrypt(ctx, sdk.EncryptArgs{
		EncryptionArgs: sdk.EncryptionArgs{
			ProtocolID:   metadataProtocol,
			KeyID:        "1",
			Counterparty: sdk.Counterparty{Type: sdk.CounterpartyTypeSelf},
		},
		Plaintext: []byte(value),
	}, "")
	if err != nil {
		return "", fmt.Errorf("cannot encrypt metadata: %w", err)
	}
	return base64.StdEncoding.EncodeToString(result.Ciphertext), nil
}

// decryptMetadata reverses encryptMetadata. Values that do not decrypt are
// returned verbatim, they predate encryption or belong to another key.
func (m *Manager) decryptMetadata(ctx context.Context, value string) string {
	if !m.cfg.EncryptWalletMetadata || value == "" {
		return value
	}

	ciphertext, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return value
	}

	result, err := m.wallet.Decrypt(ctx, sdk.DecryptArgs{
		EncryptionArgs: sdk.EncryptionArgs{
			ProtocolID:   metadataProtocol,
			KeyID:        "1",
			Counterparty: sdk.Counterparty{Type: sdk.CounterpartyTypeSelf},
		},
		Ciphertext: ciphertext,
	}, "")
	if err != nil {
		return value
	}
	return string(result.Plaintext)
}
