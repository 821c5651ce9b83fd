// Package services multiplexes the configured chain-data providers behind
// the wdk.Services contract. Read operations race through providers until one
// answers; broadcasts fan out to every broadcast-capable provider.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/go-softwarelab/common/pkg/to"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/services/internal/arc"
	"github.com/icellan/wallet-toolbox/pkg/services/internal/bitails"
	"github.com/icellan/wallet-toolbox/pkg/services/internal/httpx"
	"github.com/icellan/wallet-toolbox/pkg/services/internal/servicequeue"
	"github.com/icellan/wallet-toolbox/pkg/services/internal/whatsonchain"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// defaultFiatRates seeds the fiat conversion table used until a rates feed
// is configured.
var defaultFiatRates = map[string]float64{
	"USD": 1,
	"GBP": 0.8,
	"EUR": 0.93,
}

// WalletServices dispatches wdk.Services calls across the configured
// providers.
type WalletServices struct {
	logger *slog.Logger
	config defs.Services

	heightServices         servicequeue.Queue[uint32]
	chainTipServices       servicequeue.Queue[*wdk.BlockHeader]
	headerByHeightServices servicequeue.Queue1[uint32, *wdk.BlockHeader]
	headerByHashServices   servicequeue.Queue1[string, *wdk.BlockHeader]
	rawTxServices          servicequeue.Queue1[string, *wdk.RawTxResult]
	merklePathServices     servicequeue.Queue1[string, *wdk.MerklePathResult]
	isValidRootServices    servicequeue.Queue2[string, uint32, bool]
	utxoStatusServices     servicequeue.Queue2[string, string, *wdk.UTXOStatusResult]
	scriptHistoryServices  servicequeue.Queue1[string, *wdk.ScriptHistoryResult]
	txStatusServices       servicequeue.Queue1[[]string, []wdk.TxStatusDetail]
	postBEEFServices       servicequeue.Queue2[*transaction.Beef, []string, *wdk.PostedBEEF]
	bsvRateServices        servicequeue.Queue[float64]

	fiatRates map[string]float64
}

var _ wdk.Services = (*WalletServices)(nil)

// New wires the providers named in the configuration into a WalletServices.
// A provider with an empty URL is skipped.
func New(logger *slog.Logger, config defs.Services, opts ...Option) *WalletServices {
	logger = logging.Child(logger, "services")

	options := to.OptionsWithDefault(Options{
		RestyClientFactory: httpx.NewRestyClientFactory(config.HTTPTimeout),
	}, opts...)

	var (
		heightProviders         []*servicequeue.Service[uint32]
		chainTipProviders       []*servicequeue.Service[*wdk.BlockHeader]
		headerByHeightProviders []*servicequeue.Service1[uint32, *wdk.BlockHeader]
		headerByHashProviders   []*servicequeue.Service1[string, *wdk.BlockHeader]
		rawTxProviders          []*servicequeue.Service1[string, *wdk.RawTxResult]
		merklePathProviders     []*servicequeue.Service1[string, *wdk.MerklePathResult]
		isValidRootProviders    []*servicequeue.Service2[string, uint32, bool]
		utxoStatusProviders     []*servicequeue.Service2[string, string, *wdk.UTXOStatusResult]
		scriptHistoryProviders  []*servicequeue.Service1[string, *wdk.ScriptHistoryResult]
		txStatusProviders       []*servicequeue.Service1[[]string, []wdk.TxStatusDetail]
		postBEEFProviders       []*servicequeue.Service2[*transaction.Beef, []string, *wdk.PostedBEEF]
		bsvRateProviders        []*servicequeue.Service[float64]
	)

	if config.ARC.URL != "" {
		arcService := arc.New(logger, options.RestyClientFactory.New(), config.ARC)
		postBEEFProviders = append(postBEEFProviders, servicequeue.NewService2(arc.ServiceName, arcService.PostBEEF))
		merklePathProviders = append(merklePathProviders, servicequeue.NewService1(arc.ServiceName, arcService.GetMerklePath))
	}

	if config.WhatsOnChain.URL != "" {
		woc := whatsonchain.New(options.RestyClientFactory.New(), logger, config.WhatsOnChain, config.FiatUpdateWindow)
		heightProviders = append(heightProviders, servicequeue.NewService(whatsonchain.ServiceName, woc.GetHeight))
		chainTipProviders = append(chainTipProviders, servicequeue.NewService(whatsonchain.ServiceName, woc.FindChainTipHeader))
		headerByHeightProviders = append(headerByHeightProviders, servicequeue.NewService1(whatsonchain.ServiceName, woc.FindHeaderForHeight))
		headerByHashProviders = append(headerByHashProviders, servicequeue.NewService1(whatsonchain.ServiceName, woc.FindHeaderForBlockHash))
		rawTxProviders = append(rawTxProviders, servicequeue.NewService1(whatsonchain.ServiceName, woc.RawTx))
		merklePathProviders = append(merklePathProviders, servicequeue.NewService1(whatsonchain.ServiceName, woc.GetMerklePath))
		isValidRootProviders = append(isValidRootProviders, servicequeue.NewService2(whatsonchain.ServiceName, woc.IsValidRootForHeight))
		utxoStatusProviders = append(utxoStatusProviders, servicequeue.NewService2(whatsonchain.ServiceName, woc.GetUTXOStatus))
		scriptHistoryProviders = append(scriptHistoryProviders, servicequeue.NewService1(whatsonchain.ServiceName, woc.GetScriptHistory))
		txStatusProviders = append(txStatusProviders, servicequeue.NewService1(whatsonchain.ServiceName, woc.GetStatusForTxIDs))
		postBEEFProviders = append(postBEEFProviders, servicequeue.NewService2(whatsonchain.ServiceName, woc.PostBEEF))
		bsvRateProviders = append(bsvRateProviders, servicequeue.NewService(whatsonchain.ServiceName, woc.UpdateBsvExchangeRate))
	}

	if config.Bitails.URL != "" {
		bt := bitails.New(options.RestyClientFactory.New(), logger, config.Bitails)
		heightProviders = append(heightProviders, servicequeue.NewService(bitails.ServiceName, bt.GetHeight))
		rawTxProviders = append(rawTxProviders, servicequeue.NewService1(bitails.ServiceName, bt.RawTx))
		txStatusProviders = append(txStatusProviders, servicequeue.NewService1(bitails.ServiceName, bt.GetStatusForTxIDs))
		postBEEFProviders = append(postBEEFProviders, servicequeue.NewService2(bitails.ServiceName, bt.PostBEEF))
	}

	services := &WalletServices{
		logger: logger,
		config: config,

		heightServices:         servicequeue.NewQueue(logger, "GetHeight", heightProviders...),
		chainTipServices:       servicequeue.NewQueue(logger, "FindChainTipHeader", chainTipProviders...),
		headerByHeightServices: servicequeue.NewQueue1(logger, "FindHeaderForHeight", headerByHeightProviders...),
		headerByHashServices:   servicequeue.NewQueue1(logger, "FindHeaderForBlockHash", headerByHashProviders...),
		rawTxServices:          servicequeue.NewQueue1(logger, "GetRawTx", rawTxProviders...),
		merklePathServices:     servicequeue.NewQueue1(logger, "GetMerklePath", merklePathProviders...),
		isValidRootServices:    servicequeue.NewQueue2(logger, "IsValidRootForHeight", isValidRootProviders...),
		utxoStatusServices:     servicequeue.NewQueue2(logger, "GetUTXOStatus", utxoStatusProviders...),
		scriptHistoryServices:  servicequeue.NewQueue1(logger, "GetScriptHistory", scriptHistoryProviders...),
		txStatusServices:       servicequeue.NewQueue1(logger, "GetStatusForTxIDs", txStatusProviders...),
		postBEEFServices:       servicequeue.NewQueue2(logger, "PostBEEF", postBEEFProviders...),
		bsvRateServices:        servicequeue.NewQueue(logger, "UpdateBsvExchangeRate", bsvRateProviders...),

		fiatRates: defaultFiatRates,
	}

	services.logActiveServices()
	return services
}

func (s *WalletServices) logActiveServices() {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	type loggable interface {
		GetNames() (methodName string, serviceNames []string)
	}

	queues := []loggable{
		&s.heightServices,
		&s.chainTipServices,
		&s.headerByHeightServices,
		&s.headerByHashServices,
		&s.rawTxServices,
		&s.merklePathServices,
		&s.isValidRootServices,
		&s.utxoStatusServices,
		&s.scriptHistoryServices,
		&s.txStatusServices,
		&s.postBEEFServices,
		&s.bsvRateServices,
	}

	attrs := make([]any, 0, len(queues))
	for _, q := range queues {
		methodName, serviceNames := q.GetNames()
		attrs = append(attrs, slog.String(methodName, strings.Join(serviceNames, ",")))
	}

	s.logger.Debug("Active services by methods", attrs...)
}

// GetHeight returns the current chain tip height.
func (s *WalletServices) GetHeight(ctx context.Context) (uint32, error) {
	height, err := s.heightServices.OneByOne(ctx)
	if err != nil {
		return 0, fmt.Errorf("all height providers failed: %w", err)
	}
	return height, nil
}

// GetHeaderForHeight returns the serialized 80-byte header at the height.
func (s *WalletServices) GetHeaderForHeight(ctx context.Context, height uint32) ([]byte, error) {
	header, err := s.FindHeaderForHeight(ctx, height)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("no header found for height %d", height)
	}
	return serializeHeader(header)
}

// FindHeaderForHeight returns the parsed header at the height, or nil when
// the height is beyond the tip.
func (s *WalletServices) FindHeaderForHeight(ctx context.Context, height uint32) (*wdk.BlockHeader, error) {
	header, err := s.headerByHeightServices.OneByOne(ctx, height)
	if err != nil {
		if errors.Is(err, servicequeue.ErrEmptyResult) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve header for height %d: %w", height, err)
	}
	return header, nil
}

// FindChainTipHeader returns the parsed header of the active chain tip.
func (s *WalletServices) FindChainTipHeader(ctx context.Context) (*wdk.BlockHeader, error) {
	header, err := s.chainTipServices.OneByOne(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to determine chain tip: %w", err)
	}
	return header, nil
}

// FindHeaderForBlockHash returns the parsed header with the given hash, or
// nil when unknown.
func (s *WalletServices) FindHeaderForBlockHash(ctx context.Context, hash string) (*wdk.BlockHeader, error) {
	header, err := s.headerByHashServices.OneByOne(ctx, hash)
	if err != nil {
		if errors.Is(err, servicequeue.ErrEmptyResult) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve header for hash %s: %w", hash, err)
	}
	return header, nil
}

// GetRawTx returns the serialized transaction for the txid, nil when no
// provider knows it.
func (s *WalletServices) GetRawTx(ctx context.Context, txID string) (*wdk.RawTxResult, error) {
	result, err := s.rawTxServices.OneByOne(ctx, txID)
	if err != nil {
		if errors.Is(err, servicequeue.ErrEmptyResult) {
			return nil, nil
		}
		return nil, fmt.Errorf("couldn't get rawtx for id %s: %w", txID, err)
	}
	return result, nil
}

// GetMerklePath returns the merkle path and containing header for a mined
// txid. The MerklePath field of the result is nil when the transaction is
// known but not mined yet.
func (s *WalletServices) GetMerklePath(ctx context.Context, txID string) (*wdk.MerklePathResult, error) {
	result, err := s.merklePathServices.OneByOne(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("couldn't get merkle path for id %s: %w", txID, err)
	}
	return result, nil
}

// IsValidRootForHeight verifies a computed merkle root against the header at
// the given height.
func (s *WalletServices) IsValidRootForHeight(ctx context.Context, root string, height uint32) (bool, error) {
	ok, err := s.isValidRootServices.OneByOne(ctx, root, height)
	if err != nil {
		return false, fmt.Errorf("failed to validate merkle root %s for height %d: %w", root, height, err)
	}
	return ok, nil
}

// GetUTXOStatus reports whether the queried script is currently a UTXO. The
// output argument is either a hex locking script or an already little-endian
// hashed script, selected by format.
func (s *WalletServices) GetUTXOStatus(ctx context.Context, output string, format wdk.UTXOStatusFormat, outpoint string) (*wdk.UTXOStatusResult, error) {
	scriptHash, err := scriptHashFor(output, format)
	if err != nil {
		return nil, err
	}

	result, err := s.utxoStatusServices.OneByOne(ctx, scriptHash, outpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get UTXO status: %w", err)
	}
	return result, nil
}

// GetScriptHistory returns confirmed and unconfirmed transactions touching
// the script hash.
func (s *WalletServices) GetScriptHistory(ctx context.Context, scriptHash string) (*wdk.ScriptHistoryResult, error) {
	result, err := s.scriptHistoryServices.OneByOne(ctx, scriptHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get script history: %w", err)
	}
	return result, nil
}

// GetStatusForTxIDs resolves the network status of a batch of txids.
func (s *WalletServices) GetStatusForTxIDs(ctx context.Context, txIDs []string) ([]wdk.TxStatusDetail, error) {
	if len(txIDs) == 0 {
		return nil, fmt.Errorf("no txIDs provided")
	}

	results, err := s.txStatusServices.OneByOne(ctx, txIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get status for txIDs: %w", err)
	}
	return results, nil
}

// PostBEEF broadcasts the BEEF to every broadcast-capable provider and
// returns one result per provider.
func (s *WalletServices) PostBEEF(ctx context.Context, beef *transaction.Beef, txIDs []string) wdk.PostBeefResult {
	results, err := s.postBEEFServices.All(ctx, beef, txIDs)
	if err != nil {
		return wdk.PostBeefResult{{Name: "none", Error: err}}
	}

	postResults := make(wdk.PostBeefResult, 0, len(results))
	for _, result := range results {
		if result.IsError() {
			postResults = append(postResults, &wdk.PostBEEFServiceResult{
				Name:  result.Name(),
				Error: result.Err(),
			})
			continue
		}
		postResults = append(postResults, &wdk.PostBEEFServiceResult{
			Name:             result.Name(),
			PostedBEEFResult: result.Value(),
		})
	}

	return postResults
}

// UpdateBsvExchangeRate refreshes and returns the cached USD/BSV rate.
func (s *WalletServices) UpdateBsvExchangeRate(ctx context.Context) (float64, error) {
	rate, err := s.bsvRateServices.OneByOne(ctx)
	if err != nil {
		return 0, fmt.Errorf("error during bsvExchangeRate: %w", err)
	}
	return rate, nil
}

// GetFiatExchangeRate returns the rate for currency relative to base, using
// the configured fiat conversion table. Base defaults to USD.
func (s *WalletServices) GetFiatExchangeRate(ctx context.Context, currency, base string) (float64, error) {
	if base == "" {
		base = "USD"
	}

	currencyRate, ok := s.fiatRates[currency]
	if !ok {
		return 0, fmt.Errorf("unknown currency %q", currency)
	}
	baseRate, ok := s.fiatRates[base]
	if !ok || baseRate == 0 {
		return 0, fmt.Errorf("unknown base currency %q", base)
	}

	return currencyRate / baseRate, nil
}

func scriptHashFor(output string, format wdk.UTXOStatusFormat) (string, error) {
	switch format {
	case wdk.UTXOFormatScript:
		hash, err := txutils.HashOutputScript(output)
		if err != nil {
			return "", fmt.Errorf("failed to hash output script: %w", err)
		}
		return hash, nil
	case wdk.UTXOFormatScriptHash, "":
		return output, nil
	default:
		return "", fmt.Errorf("unsupported UTXO status format %q", format)
	}
}
