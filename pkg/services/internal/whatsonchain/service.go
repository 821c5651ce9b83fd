// Package whatsonchain talks to the WhatsOnChain HTTP API. It is the primary
// chain-data provider: raw transactions, block headers, merkle proofs, script
// queries, transaction statuses and the BSV exchange rate.
package whatsonchain

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/services/internal/httpx"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// ServiceName identifies this provider in results and logs.
const ServiceName = defs.WhatsOnChainServiceName

// Service is a WhatsOnChain API client.
type Service struct {
	httpClient *resty.Client
	url        string
	logger     *slog.Logger

	rateWindow time.Duration
	rateMu     sync.Mutex
	rate       float64
	rateTime   time.Time

	rootCacheMu sync.RWMutex
	rootCache   map[uint32]string
}

// New builds a WhatsOnChain client from the provider configuration.
func New(httpClient *resty.Client, logger *slog.Logger, config defs.WhatsOnChain, rateWindow time.Duration) *Service {
	logger = logging.Child(logger, "WoC")

	headers := httpx.NewHeaders().
		AcceptJSON().
		UserAgent().Value("wallet-toolbox").
		Authorization().IfNotEmpty(config.APIKey)

	client := httpClient.
		SetHeaders(headers).
		SetLogger(logging.RestyAdapter(logger)).
		SetDebug(logging.IsDebug(logger))

	return &Service{
		httpClient: client,
		url:        config.URL,
		logger:     logger,
		rateWindow: rateWindow,
		rootCache:  make(map[uint32]string),
	}
}

// RawTx fetches the serialized transaction for the txid. Returns nil when the
// transaction is unknown to WhatsOnChain.
func (s *Service) RawTx(ctx context.Context, txID string) (*wdk.RawTxResult, error) {
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetHeader("Cache-Control", "no-cache").
		Get(fmt.Sprintf("%s/tx/%s/hex", s.url, txID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch raw tx hex: %w", err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from WhatsOnChain", res.StatusCode())
	}

	rawTx, err := hex.DecodeString(res.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode raw transaction hex: %w", err)
	}

	computedTxID := txutils.TransactionIDFromRawTx(rawTx)
	if computedTxID != txID {
		return nil, fmt.Errorf("computed txid %s does not match requested value %s", computedTxID, txID)
	}

	return &wdk.RawTxResult{
		Name:  ServiceName,
		TxID:  txID,
		RawTx: rawTx,
	}, nil
}

type exchangeRateResponse struct {
	Time     int64   `json:"time"`
	Rate     float64 `json:"rate"`
	Currency string  `json:"currency"`
}

// UpdateBsvExchangeRate returns the USD price of one BSV, re-fetching at most
// once per configured update window.
func (s *Service) UpdateBsvExchangeRate(ctx context.Context) (float64, error) {
	s.rateMu.Lock()
	defer s.rateMu.Unlock()

	if !s.rateTime.IsZero() && time.Since(s.rateTime) < s.rateWindow {
		return s.rate, nil
	}

	var response exchangeRateResponse
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&response).
		Get(fmt.Sprintf("%s/exchangerate", s.url))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch exchange rate: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from WhatsOnChain", res.StatusCode())
	}
	if response.Currency != "USD" {
		return 0, fmt.Errorf("unsupported currency %q returned from WhatsOnChain", response.Currency)
	}

	s.rate = response.Rate
	s.rateTime = time.Now()
	return s.rate, nil
}
