package defs

import (
	"time"
)

// Service names used in per-provider results and logs.
const (
	WhatsOnChainServiceName = "WhatsOnChain"
	ArcServiceName          = "ARC"
	BitailsServiceName      = "Bitails"
)

// WhatsOnChain holds the configuration of the WhatsOnChain chain-data provider.
type WhatsOnChain struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// ARC holds the configuration of an ARC broadcast provider.
type ARC struct {
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	DeploymentID  string `yaml:"deployment_id"`
	CallbackURL   string `yaml:"callback_url"`
	CallbackToken string `yaml:"callback_token"`
	WaitFor       string `yaml:"wait_for"`
}

// Bitails holds the configuration of the Bitails provider.
type Bitails struct {
	URL string `yaml:"url"`
}

// Services aggregates provider configuration for the chain services layer.
type Services struct {
	Chain        BSVNetwork    `yaml:"chain"`
	WhatsOnChain WhatsOnChain  `yaml:"whatsonchain"`
	ARC          ARC           `yaml:"arc"`
	Bitails      Bitails       `yaml:"bitails"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`

	// FiatUpdateWindow is the minimum age before a cached exchange rate
	// is refreshed.
	FiatUpdateWindow time.Duration `yaml:"fiat_update_window"`
}

// DefaultServicesConfig returns the production endpoints for the given network.
func DefaultServicesConfig(chain BSVNetwork) Services {
	wocNetwork := "main"
	arcURL := "https://arc.taal.com"
	bitailsURL := "https://api.bitails.io"
	if chain == NetworkTestnet {
		wocNetwork = "test"
		arcURL = "https://arc-test.taal.com"
		bitailsURL = "https://test-api.bitails.io"
	}

	return Services{
		Chain: chain,
		WhatsOnChain: WhatsOnChain{
			URL: "https://api.whatsonchain.com/v1/bsv/" + wocNetwork,
		},
		ARC: ARC{
			URL:     arcURL,
			WaitFor: "SEEN_ON_NETWORK",
		},
		Bitails: Bitails{
			URL: bitailsURL,
		},
		HTTPTimeout:      30 * time.Second,
		FiatUpdateWindow: 15 * time.Minute,
	}
}
