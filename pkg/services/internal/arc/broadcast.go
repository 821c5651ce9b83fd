package arc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type broadcastRequestBody struct {
	// RawTx is hex encoded and may be in raw, extended format or BEEF form.
	RawTx string `json:"rawTx"`
}

func (s *Service) broadcast(ctx context.Context, txHex string) (*TXInfo, error) {
	result := &TXInfo{}
	arcErr := &APIError{}

	response, err := s.httpClient.R().
		SetContext(ctx).
		SetHeaders(s.broadcastHeaders).
		SetBody(broadcastRequestBody{RawTx: txHex}).
		SetResult(result).
		SetError(arcErr).
		Post(s.broadcastURL)
	if err != nil {
		var netError net.Error
		if errors.As(err, &netError) {
			return nil, fmt.Errorf("arc is unreachable: %w", netError)
		}
		return nil, fmt.Errorf("failed to send request to arc: %w", err)
	}

	switch response.StatusCode() {
	case http.StatusOK:
		if result.TxID == "" {
			return nil, nil
		}
		return result, nil
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return nil, fmt.Errorf("arc returned unauthorized: %w", arcErr)
	case StatusNotExtendedFormat:
		return nil, fmt.Errorf("arc expects transaction in extended format: %w", arcErr)
	case StatusFeeTooLow, StatusCumulativeFeeValidationFailed:
		return nil, fmt.Errorf("arc rejected transaction because of wrong fee: %w", arcErr)
	default:
		return nil, fmt.Errorf("arc cannot process provided transaction: %w", arcErr)
	}
}
