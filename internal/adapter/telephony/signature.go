package telephony

import "github.com/twilio/twilio-go/client"

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "X-Twilio-Signature"

// SignatureValidator checks that a webhook was sent by the provider.
type SignatureValidator struct {
	v client.RequestValidator
}

// NewSignatureValidator creates a validator keyed by the account auth token.
func NewSignatureValidator(authToken string) *SignatureValidator {
	return &SignatureValidator{v: client.NewRequestValidator(authToken)}
}

// Valid reports whether signature matches the full request URL and form params.
func (s *SignatureValidator) Valid(url string, params map[string]string, signature string) bool {
	if signature == "" {
		return false
	}
	return s.v.Validate(url, params, signature)
}
