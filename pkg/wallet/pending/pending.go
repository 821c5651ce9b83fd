// Package pending retains created-but-unsigned actions between the create
// and sign calls, keyed by their storage reference.
package pending

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/jellydator/ttlcache/v3"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// DefaultTTL is how long a created action waits for its sign call before the
// reference expires and signing fails.
const DefaultTTL = 300 * time.Second

// SignAction holds the assembled transaction and the original create
// arguments of an action awaiting signature.
type SignAction struct {
	Tx               *transaction.Transaction
	InputBEEF        *transaction.Beef
	CreateActionArgs wdk.ValidCreateActionArgs
}

// SignActionsRepository manages pending sign actions by reference.
type SignActionsRepository interface {
	Save(reference string, action *SignAction) error
	Get(reference string) (*SignAction, error)
	Delete(reference string) error
}

// LocalRepository keeps pending sign actions in an in-process TTL cache.
type LocalRepository struct {
	cache  *ttlcache.Cache[string, *SignAction]
	logger *slog.Logger
}

// NewLocalRepository creates a repository whose entries expire after ttl.
func NewLocalRepository(logger *slog.Logger, ttl time.Duration) *LocalRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache := ttlcache.New[string, *SignAction](
		ttlcache.WithTTL[string, *SignAction](ttl),
		ttlcache.WithDisableTouchOnHit[string, *SignAction](),
	)
	go cache.Start()

	return &LocalRepository{
		cache:  cache,
		logger: logging.Child(logger, "pendingSignActions"),
	}
}

// Save stores the pending action under its reference.
func (r *LocalRepository) Save(reference string, action *SignAction) error {
	if reference == "" {
		return fmt.Errorf("reference is required to save a pending sign action")
	}
	if action == nil {
		return fmt.Errorf("pending sign action is required")
	}
	r.cache.Set(reference, action, ttlcache.DefaultTTL)
	return nil
}

// Get retrieves the pending action; unknown or expired references fail.
func (r *LocalRepository) Get(reference string) (*SignAction, error) {
	item := r.cache.Get(reference)
	if item == nil {
		return nil, fmt.Errorf("no pending sign action found for reference %q", reference)
	}
	return item.Value(), nil
}

// Delete removes the pending action after a successful sign or an abort.
func (r *LocalRepository) Delete(reference string) error {
	r.cache.Delete(reference)
	return nil
}

// Close stops the background eviction loop.
func (r *LocalRepository) Close() {
	r.cache.Stop()
}
