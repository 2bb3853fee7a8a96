package speech

import (
	"log"

	"github.com/xiaot623/lifeline/internal/config"
)

const (
	ProviderElevenLabs = "elevenlabs"
	ProviderOpenAI     = "openai"
)

// NewSynthesizer picks a backend from configuration. It returns nil when the
// selected backend has no credentials; calls then fail with a synthesis error
// while SMS alerts still go out.
func NewSynthesizer(cfg *config.Config) Synthesizer {
	if cfg.MockMode() {
		log.Println("LIFELINE_MODE=MOCK detected, using mock speech synthesizer")
		return NewMockSynthesizer()
	}

	switch cfg.TTSProvider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			log.Println("WARN: OPENAI_API_KEY not set, speech synthesis disabled")
			return nil
		}
		return NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAITTSVoice, cfg.ProviderTimeout)
	case ProviderElevenLabs, "":
		if cfg.ElevenLabsAPIKey == "" {
			log.Println("WARN: ELEVENLABS_API_KEY not set, speech synthesis disabled")
			return nil
		}
		return NewElevenLabsClient(cfg.ElevenLabsBaseURL, cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID, cfg.ProviderTimeout)
	default:
		log.Printf("WARN: unknown TTS_PROVIDER %q, speech synthesis disabled", cfg.TTSProvider)
		return nil
	}
}
