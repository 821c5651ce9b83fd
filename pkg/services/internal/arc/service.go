// Package arc talks to an ARC transaction processor. ARC is the primary
// broadcast provider: it accepts BEEF, tracks the lifecycle of submitted
// transactions and serves merkle paths for mined ones.
package arc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/go-resty/resty/v2"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/services/internal/httpx"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// ServiceName identifies this provider in results and logs.
const ServiceName = defs.ArcServiceName

// Custom ARC http status codes.
const (
	StatusNotExtendedFormat             = 460
	StatusFeeTooLow                     = 465
	StatusCumulativeFeeValidationFailed = 473
)

// Service is an ARC API client.
type Service struct {
	logger           *slog.Logger
	httpClient       *resty.Client
	config           defs.ARC
	broadcastURL     string
	queryTxURL       string
	broadcastHeaders httpx.Headers
}

// New builds an ARC client from the provider configuration.
func New(logger *slog.Logger, httpClient *resty.Client, config defs.ARC) *Service {
	logger = logging.Child(logger, "arc")

	headers := httpx.NewHeaders().
		AcceptJSON().
		ContentTypeJSON().
		UserAgent().Value("wallet-toolbox").
		Authorization().IfNotEmpty(config.Token).
		Set("XDeployment-ID").OrDefault(config.DeploymentID, "wallet-toolbox#"+time.Now().Format("20060102150405"))

	httpClient = httpClient.
		SetHeaders(headers).
		SetLogger(logging.RestyAdapter(logger)).
		SetDebug(logging.IsDebug(logger))

	return &Service{
		logger:     logger,
		httpClient: httpClient,
		config:     config,

		broadcastURL: config.URL + "/v1/tx",
		queryTxURL:   config.URL + "/v1/tx/{txID}",

		broadcastHeaders: httpx.NewHeaders().
			Set("X-CallbackUrl").IfNotEmpty(config.CallbackURL).
			Set("X-CallbackToken").IfNotEmpty(config.CallbackToken).
			Set("X-WaitFor").IfNotEmpty(config.WaitFor),
	}
}

// PostBEEF submits the BEEF to ARC and resolves a per-txid result. ARC only
// takes one subject transaction per submission; statuses for the remaining
// txids are resolved through the query endpoint.
func (s *Service) PostBEEF(ctx context.Context, beef *transaction.Beef, txIDs []string) (*wdk.PostedBEEF, error) {
	if err := validateBEEF(beef); err != nil {
		return nil, err
	}
	if len(txIDs) == 0 {
		return nil, fmt.Errorf("no txIDs provided")
	}

	beefHex, err := subjectBEEFHex(beef)
	if err != nil {
		return nil, err
	}

	response, err := s.broadcast(ctx, beefHex)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast beef: %w", err)
	}

	results := make([]wdk.PostedTxID, 0, len(txIDs))
	for _, txID := range txIDs {
		if response != nil && response.TxID == txID {
			results = append(results, toResultForPostTxID(txID, response, nil))
			continue
		}
		info, queryErr := s.lookupTransaction(ctx, txID)
		results = append(results, toResultForPostTxID(txID, info, queryErr))
	}

	return &wdk.PostedBEEF{TxIDResults: results}, nil
}

func (s *Service) lookupTransaction(ctx context.Context, txID string) (*TXInfo, error) {
	info, err := s.queryTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("arc query tx %s failed: %w", txID, err)
	}
	if info == nil {
		return nil, fmt.Errorf("not found tx %s in arc", txID)
	}
	if info.TxID != txID {
		return nil, fmt.Errorf("got response for tx %s while querying for %s", info.TxID, txID)
	}
	return info, nil
}

func toResultForPostTxID(txID string, info *TXInfo, err error) wdk.PostedTxID {
	if err != nil {
		return wdk.PostedTxID{
			TxID:   txID,
			Result: wdk.PostedTxIDResultError,
			Error:  err,
		}
	}

	doubleSpend := info.TXStatus == DoubleSpendAttempted
	result := wdk.PostedTxID{
		Result:       wdk.PostedTxIDResultSuccess,
		TxID:         txID,
		DoubleSpend:  doubleSpend,
		BlockHash:    info.BlockHash,
		BlockHeight:  info.BlockHeight,
		CompetingTxs: info.CompetingTxs,
	}
	if doubleSpend {
		result.Result = wdk.PostedTxIDResultDoubleSpend
	}

	if info.MerklePath != "" {
		merklePath, parseErr := transaction.NewMerklePathFromHex(info.MerklePath)
		if parseErr != nil {
			result.Error = parseErr
			result.Result = wdk.PostedTxIDResultError
		} else {
			result.MerklePath = merklePath
		}
	}

	if data, marshalErr := json.Marshal(info); marshalErr == nil {
		result.Data = string(data)
	} else {
		result.Data = fmt.Sprintf("%+v", info)
	}

	return result
}

func validateBEEF(beef *transaction.Beef) error {
	if beef == nil {
		return fmt.Errorf("cannot broadcast nil beef")
	}
	if len(beef.Transactions) == 0 {
		return fmt.Errorf("cannot broadcast empty beef")
	}

	for _, tx := range beef.Transactions {
		if tx.DataFormat == transaction.TxIDOnly || tx.Transaction == nil {
			return fmt.Errorf("arc does not support beef v2 and provided beef cannot be converted to v1")
		}
	}
	return nil
}
