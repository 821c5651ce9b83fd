// Package httpx carries the shared HTTP plumbing of the chain-data services:
// a resty client factory with common retry policy and a fluent header builder.
package httpx

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultRetryCount    = 3
	defaultRetryInterval = 1 * time.Second
)

// RetryOnErrOr5xx retries on any transport error or a 5xx response.
func RetryOnErrOr5xx(r *resty.Response, err error) bool {
	return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
}

func retryOnTooManyRequestsStatus(res *resty.Response, err error) bool {
	return res.StatusCode() == http.StatusTooManyRequests
}

// RestyClientFactory produces resty clients sharing a common transport and
// retry policy. Each service gets its own client so per-service headers do
// not leak between providers.
type RestyClientFactory struct {
	base *resty.Client
}

// New returns a fresh client configured like the factory's base.
func (r *RestyClientFactory) New() *resty.Client {
	base := r.base
	clone := resty.New()
	clone.SetTransport(base.GetClient().Transport)
	clone.SetTimeout(base.GetClient().Timeout)

	clone.SetDebug(base.Debug)
	clone.SetDisableWarn(base.DisableWarn)

	clone.SetRetryCount(base.RetryCount)
	clone.SetRetryWaitTime(base.RetryWaitTime)
	clone.SetRetryMaxWaitTime(base.RetryMaxWaitTime)
	clone.SetRetryAfter(base.RetryAfter)
	clone.SetRetryResetReaders(base.RetryResetReaders)
	for _, cond := range base.RetryConditions {
		clone.AddRetryCondition(cond)
	}

	return clone
}

// NewRestyClientFactoryWithBase builds a factory cloning the provided client.
func NewRestyClientFactoryWithBase(base *resty.Client) *RestyClientFactory {
	if base == nil {
		panic("resty client instance is required")
	}
	return &RestyClientFactory{base: base}
}

// NewRestyClientFactory builds a factory with the default retry policy and
// request timeout.
func NewRestyClientFactory(timeout time.Duration) *RestyClientFactory {
	return &RestyClientFactory{
		base: resty.New().
			SetTimeout(timeout).
			SetRetryCount(defaultRetryCount).
			SetRetryWaitTime(defaultRetryInterval).
			SetRetryMaxWaitTime(defaultRetryCount * defaultRetryInterval).
			AddRetryCondition(retryOnTooManyRequestsStatus),
	}
}
