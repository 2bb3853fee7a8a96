package telephony

import (
	"log"

	"github.com/xiaot623/lifeline/internal/config"
)

// NewProvider returns the configured provider, a mock in MOCK mode, or nil
// when Twilio credentials are incomplete.
func NewProvider(cfg *config.Config) Provider {
	if cfg.MockMode() {
		log.Println("LIFELINE_MODE=MOCK detected, using mock telephony provider")
		return NewMockProvider()
	}
	if !cfg.TwilioConfigured() {
		log.Println("WARN: Twilio credentials incomplete, emergency notifications disabled")
		return nil
	}
	return NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioMaxRPS, cfg.ProviderTimeout)
}
