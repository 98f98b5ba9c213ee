package mailer

import (
	"fmt"
	"time"

	"github.com/seojun/letterpress/internal/config"
)

const defaultSendTimeout = 10 * time.Second

// NewClient builds a Client from configuration.
func NewClient(cfg config.EmailConfig) (Client, error) {
	switch cfg.Provider {
	case "postmark":
		if cfg.ServerToken == "" {
			return nil, fmt.Errorf("postmark provider requires a server token")
		}
		timeout := cfg.SendTimeout
		if timeout <= 0 {
			timeout = defaultSendTimeout
		}
		return NewPostmark(cfg.ServerToken, cfg.BaseURL, cfg.Sender, NewHTTPClient(timeout)), nil
	case "stdout":
		return NewStdout(), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %q", cfg.Provider)
	}
}
