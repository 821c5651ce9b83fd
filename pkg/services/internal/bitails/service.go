// Package bitails talks to the Bitails HTTP API. It backs up the primary
// providers with raw transaction lookup, transaction status checks and a
// second broadcast path.
package bitails

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/go-softwarelab/common/pkg/to"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/services/internal/httpx"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// ServiceName identifies this provider in results and logs.
const ServiceName = defs.BitailsServiceName

// Service is a Bitails API client.
type Service struct {
	httpClient *resty.Client
	url        string
	logger     *slog.Logger
}

// New builds a Bitails client from the provider configuration.
func New(httpClient *resty.Client, logger *slog.Logger, config defs.Bitails) *Service {
	logger = logging.Child(logger, "Bitails")

	headers := httpx.NewHeaders().
		AcceptJSON().
		UserAgent().Value("wallet-toolbox")

	client := httpClient.
		SetHeaders(headers).
		SetLogger(logging.RestyAdapter(logger)).
		SetDebug(logging.IsDebug(logger))

	return &Service{
		httpClient: client,
		url:        strings.TrimSuffix(config.URL, "/"),
		logger:     logger,
	}
}

// RawTx fetches the serialized transaction for the txid. Returns nil when the
// transaction is unknown to Bitails.
func (s *Service) RawTx(ctx context.Context, txID string) (*wdk.RawTxResult, error) {
	res, err := s.httpClient.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/download/tx/%s/hex", s.url, txID))
	if err != nil {
		return nil, fmt.Errorf("%s: HTTP request failed for raw tx: %w", ServiceName, err)
	}

	switch res.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("%s: unexpected HTTP %d: %s", ServiceName, res.StatusCode(), res.String())
	}

	rawTx, err := hex.DecodeString(strings.TrimSpace(res.String()))
	if err != nil {
		return nil, fmt.Errorf("%s: decode hex failed: %w", ServiceName, err)
	}

	computedTxID := txutils.TransactionIDFromRawTx(rawTx)
	if computedTxID != txID {
		return nil, fmt.Errorf("%s: txID mismatch: expected %s, got %s", ServiceName, txID, computedTxID)
	}

	return &wdk.RawTxResult{
		Name:  ServiceName,
		TxID:  txID,
		RawTx: rawTx,
	}, nil
}

type networkInfo struct {
	Blocks uint32 `json:"blocks"`
}

// GetHeight returns the current best-chain height.
func (s *Service) GetHeight(ctx context.Context) (uint32, error) {
	var info networkInfo
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&info).
		Get(fmt.Sprintf("%s/network/info", s.url))
	if err != nil {
		return 0, fmt.Errorf("%s: failed to fetch network info: %w", ServiceName, err)
	}
	if res.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("%s: unexpected HTTP %d", ServiceName, res.StatusCode())
	}
	if info.Blocks == 0 {
		return 0, fmt.Errorf("%s: API returned height 0", ServiceName)
	}
	return info.Blocks, nil
}

type txStatusResponse struct {
	TxID        string `json:"txid"`
	BlockHash   string `json:"blockhash"`
	BlockHeight uint32 `json:"blockheight"`
}

// GetStatusForTxIDs resolves the network status of a batch of txids, one
// query per txid.
func (s *Service) GetStatusForTxIDs(ctx context.Context, txIDs []string) ([]wdk.TxStatusDetail, error) {
	if len(txIDs) == 0 {
		return nil, fmt.Errorf("no txIDs provided")
	}

	tip, err := s.GetHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get current height: %w", ServiceName, err)
	}

	results := make([]wdk.TxStatusDetail, 0, len(txIDs))
	for _, txID := range txIDs {
		status, err := s.getTxStatus(ctx, txID)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to get status for %s: %w", ServiceName, txID, err)
		}

		item := wdk.TxStatusDetail{TxID: txID}
		switch {
		case status == nil:
			item.Status = wdk.ResultStatusForTxIDNotFound.String()
		case status.BlockHeight > 0:
			item.Status = wdk.ResultStatusForTxIDMined.String()
			if status.BlockHeight > tip {
				return nil, fmt.Errorf("%s: block height %d for %s is above tip %d", ServiceName, status.BlockHeight, txID, tip)
			}
			item.Depth = to.Ptr(int(tip) - int(status.BlockHeight) + 1)
		default:
			item.Status = wdk.ResultStatusForTxIDKnown.String()
			item.Depth = to.Ptr(0)
		}
		results = append(results, item)
	}

	return results, nil
}

func (s *Service) getTxStatus(ctx context.Context, txID string) (*txStatusResponse, error) {
	var status txStatusResponse
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&status).
		Get(fmt.Sprintf("%s/tx/%s/status", s.url, txID))
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}

	switch res.StatusCode() {
	case http.StatusOK:
		return &status, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected HTTP %d", res.StatusCode())
	}
}
