package portal

import (
	"prepaid-usage-lab/internal/config"
)

// NewClientFromConfig builds a client from the portal section of the server config.
// When no token is configured it is extracted from TokenURL.
func NewClientFromConfig(cfg config.PortalConfig) (*Client, error) {
	token := cfg.Token
	if token == "" && cfg.TokenURL != "" {
		t, err := ExtractToken(cfg.TokenURL)
		if err != nil {
			return nil, err
		}
		token = t
	}

	opts := []ClientOption{WithHeaders(cfg.Headers)}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	if token != "" {
		opts = append(opts, WithAuthToken(token))
	}
	return NewClient(cfg.BaseURL, cfg.LightRoom, cfg.ACRoom, opts...), nil
}
