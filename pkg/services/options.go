package services

import (
	"github.com/icellan/wallet-toolbox/pkg/services/internal/httpx"
)

// Options adjusts how the chain services layer is constructed.
type Options struct {
	// RestyClientFactory produces the HTTP clients handed to each provider.
	RestyClientFactory *httpx.RestyClientFactory
}

// Option mutates the construction Options.
type Option = func(*Options)

// WithRestyClientFactory replaces the HTTP client factory, mostly for tests
// that stub transports.
func WithRestyClientFactory(factory *httpx.RestyClientFactory) Option {
	return func(o *Options) {
		o.RestyClientFactory = factory
	}
}
