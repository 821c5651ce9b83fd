// Package actions implements the storage side of the wallet action pipeline:
// create, process, internalize, abort and the list queries with their SpecOp
// overloads.
package actions

import (
	"log/slog"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/commission"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/funder"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/repo"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"gorm.io/gorm"
)

const (
	derivationLength = 16
	referenceLength  = 12
)

// Actions bundles the collaborators of every storage action.
type Actions struct {
	logger        *slog.Logger
	db            *gorm.DB
	repos         *repo.Repositories
	funder        *funder.SQL
	commission    *commission.ScriptGenerator
	commissionCfg defs.Commission
	random        wdk.Randomizer
	services      wdk.Services
	maxScriptLen  int
}

// New wires the actions over the shared repositories. services may be nil;
// SpecOps that audit liveness then refuse to run.
func New(
	logger *slog.Logger,
	db *gorm.DB,
	repos *repo.Repositories,
	fund *funder.SQL,
	commissionCfg defs.Commission,
	random wdk.Randomizer,
	services wdk.Services,
	maxScriptLen int,
) *Actions {
	a := &Actions{
		logger:        logging.Child(logger, "storageActions"),
		db:            db,
		repos:         repos,
		funder:        fund,
		commissionCfg: commissionCfg,
		random:        random,
		services:      services,
		maxScriptLen:  maxScriptLen,
	}
	if commissionCfg.Enabled() {
		a.commission = commission.NewScriptGenerator(string(commissionCfg.PubKeyHex))
	}
	return a
}

func (a *Actions) randomReference() (string, error) {
	return a.random.Base64(referenceLength)
}

func (a *Actions) randomDerivation() (string, error) {
	return a.random.Base64(derivationLength)
}
