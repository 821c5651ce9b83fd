package whatsonchain

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/icellan/wallet-toolbox/pkg/services/internal/httpx"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

type chainInfo struct {
	Blocks uint32 `json:"blocks"`
}

// GetHeight returns the current best-chain height.
func (s *Service) GetHeight(ctx context.Context) (uint32, error) {
	var info chainInfo
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&info).
		Get(fmt.Sprintf("%s/chain/info", s.url))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch chain info: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from WhatsOnChain", res.StatusCode())
	}
	if info.Blocks == 0 {
		return 0, fmt.Errorf("WhatsOnChain returned height 0")
	}
	return info.Blocks, nil
}

// FindChainTipHeader returns the header of the active chain tip.
func (s *Service) FindChainTipHeader(ctx context.Context) (*wdk.BlockHeader, error) {
	var headers []wdk.BlockHeader
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&headers).
		Get(fmt.Sprintf("%s/block/headers?limit=1", s.url))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block headers: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from WhatsOnChain", res.StatusCode())
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("no block headers returned from WhatsOnChain")
	}
	return &headers[0], nil
}

// FindHeaderForHeight returns the header at the given height, nil when the
// height is beyond the tip.
func (s *Service) FindHeaderForHeight(ctx context.Context, height uint32) (*wdk.BlockHeader, error) {
	var header wdk.BlockHeader
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&header).
		Get(fmt.Sprintf("%s/block/%d/header", s.url, height))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block header for height %d: %w", height, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from WhatsOnChain", res.StatusCode())
	}
	if header.Hash == "" {
		return nil, fmt.Errorf("empty block header returned for height %d", height)
	}
	return &header, nil
}

// FindHeaderForBlockHash returns the header with the given hash, nil when the
// block is unknown.
func (s *Service) FindHeaderForBlockHash(ctx context.Context, hash string) (*wdk.BlockHeader, error) {
	var header wdk.BlockHeader
	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&header).
		Get(fmt.Sprintf("%s/block/%s/header", s.url, hash))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block header for hash %s: %w", hash, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from WhatsOnChain", res.StatusCode())
	}
	if header.Hash == "" {
		return nil, fmt.Errorf("empty block header returned for hash %s", hash)
	}
	return &header, nil
}

// IsValidRootForHeight compares a computed merkle root against the header at
// the given height. Roots of settled heights are cached.
func (s *Service) IsValidRootForHeight(ctx context.Context, root string, height uint32) (bool, error) {
	if cached, ok := s.rootFromCache(height); ok {
		return strings.EqualFold(cached, root), nil
	}

	remote, err := s.fetchRemoteRoot(ctx, height)
	if err != nil {
		return false, fmt.Errorf("%s: %w", ServiceName, err)
	}
	if remote == "" {
		return false, nil
	}

	s.storeRootInCache(height, remote)
	return strings.EqualFold(remote, root), nil
}

func (s *Service) fetchRemoteRoot(ctx context.Context, height uint32) (string, error) {
	var header struct {
		MerkleRoot string `json:"merkleroot"`
	}

	res, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(&header).
		AddRetryCondition(httpx.RetryOnErrOr5xx).
		Get(fmt.Sprintf("%s/block/%d/header", s.url, height))
	if err != nil {
		return "", fmt.Errorf("failed to fetch block header for height %d: %w", height, err)
	}

	switch res.StatusCode() {
	case http.StatusOK:
		return header.MerkleRoot, nil
	case http.StatusNotFound:
		// unknown heights are never cached
		return "", nil
	default:
		return "", fmt.Errorf("unexpected status %d from WhatsOnChain", res.StatusCode())
	}
}

func (s *Service) rootFromCache(height uint32) (string, bool) {
	s.rootCacheMu.RLock()
	defer s.rootCacheMu.RUnlock()
	root, ok := s.rootCache[height]
	return root, ok
}

func (s *Service) storeRootInCache(height uint32, root string) {
	s.rootCacheMu.Lock()
	defer s.rootCacheMu.Unlock()
	s.rootCache[height] = root
}
