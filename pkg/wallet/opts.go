package wallet

import (
	"log/slog"
	"time"

	"github.com/icellan/wallet-toolbox/pkg/wallet/pending"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// Opts configures optional wallet collaborators and behavior flags.
type Opts struct {
	Logger                 *slog.Logger
	Services               wdk.Services
	PendingSignActionsRepo pending.SignActionsRepository
	PendingSignActionsTTL  time.Duration

	// IncludeAllSourceTransactions makes signable transactions carry the
	// source transaction for every input, including those already present
	// in the input BEEF.
	IncludeAllSourceTransactions bool

	// AutoKnownTxids treats every txid in the party accumulator as known to
	// the counterparty, so storage can return them txid-only.
	AutoKnownTxids bool
}

// WithLogger sets the parent logger of the wallet.
func WithLogger(logger *slog.Logger) func(*Opts) {
	return func(o *Opts) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithServices wires the chain services layer used for height, header and
// liveness queries.
func WithServices(services wdk.Services) func(*Opts) {
	return func(o *Opts) {
		o.Services = services
	}
}

// WithPendingSignActionsRepository replaces the in-process pending
// sign-action cache, for example with a shared one.
func WithPendingSignActionsRepository(repo pending.SignActionsRepository) func(*Opts) {
	return func(o *Opts) {
		o.PendingSignActionsRepo = repo
	}
}

// WithPendingSignActionsTTL overrides how long a created action waits for
// its sign call.
func WithPendingSignActionsTTL(ttl time.Duration) func(*Opts) {
	return func(o *Opts) {
		o.PendingSignActionsTTL = ttl
	}
}

// WithIncludeAllSourceTransactions toggles source transactions on signable
// transaction inputs. Default: true.
func WithIncludeAllSourceTransactions(value bool) func(*Opts) {
	return func(o *Opts) {
		o.IncludeAllSourceTransactions = value
	}
}

// WithAutoKnownTxids toggles automatic elision of party-known txids from
// storage BEEF responses. Default: false.
func WithAutoKnownTxids(value bool) func(*Opts) {
	return func(o *Opts) {
		o.AutoKnownTxids = value
	}
}
