package wallet

import (
	"fmt"
	"sync"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// beefParty accumulates every transaction the wallet has handed to its
// counterparty, so later calls can elide transactions the client already
// knows and resolve txid-only placeholders locally.
type beefParty struct {
	mu   sync.Mutex
	beef *transaction.Beef
}

func newBeefParty() *beefParty {
	return &beefParty{beef: transaction.NewBeefV2()}
}

// MergeAtomic records a transaction returned to the caller as atomic BEEF.
func (p *beefParty) MergeAtomic(atomicBeef []byte) error {
	if len(atomicBeef) == 0 {
		return nil
	}
	beef, _, err := transaction.NewBeefFromAtomicBytes(atomicBeef)
	if err != nil {
		return fmt.Errorf("cannot parse atomic beef for the party accumulator: %w", err)
	}
	return p.Merge(beef)
}

// Merge records every transaction of the BEEF.
func (p *beefParty) Merge(beef *transaction.Beef) error {
	if beef == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.beef.MergeBeef(beef); err != nil {
		return fmt.Errorf("cannot merge beef into the party accumulator: %w", err)
	}
	return nil
}

// MergeTransaction records a single transaction.
func (p *beefParty) MergeTransaction(tx *transaction.Transaction) error {
	if tx == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.beef.MergeTransaction(tx); err != nil {
		return fmt.Errorf("cannot merge transaction into the party accumulator: %w", err)
	}
	return nil
}

// KnownTxids lists the txids already shared with the counterparty.
func (p *beefParty) KnownTxids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.beef.GetValidTxids()
}

// Complete resolves every txid-only placeholder of the BEEF from the
// accumulator. Placeholders the counterparty declared in knownTxids may stay
// unresolved; any other unresolved placeholder is a hard error, since the
// recipient would be unable to verify the transaction.
func (p *beefParty) Complete(beef *transaction.Beef, knownTxids []string) error {
	if beef == nil {
		return nil
	}

	known := make(map[string]struct{}, len(knownTxids))
	for _, txid := range knownTxids {
		known[txid] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for hash, btx := range beef.Transactions {
		if btx.DataFormat != transaction.TxIDOnly {
			continue
		}
		txid := hash.String()
		if _, ok := known[txid]; ok {
			continue
		}
		stored := p.beef.FindTransaction(txid)
		if stored == nil {
			return fmt.Errorf("beef contains txid-only entry %s that neither side can resolve", txid)
		}
		if _, err := beef.MergeTransaction(stored); err != nil {
			return fmt.Errorf("cannot resolve txid-only entry %s: %w", txid, err)
		}
	}
	return nil
}
