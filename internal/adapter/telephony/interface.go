// Package telephony places voice calls and sends SMS through a provider.
package telephony

import "context"

// CallRequest describes one outbound voice call.
type CallRequest struct {
	To     string
	From   string
	Script string // TwiML document
	// StatusCallback receives lifecycle events; empty disables them.
	StatusCallback string
}

// CallReceipt is the provider's acknowledgement of a placed call.
type CallReceipt struct {
	Sid    string
	Status string
}

// SMSRequest describes one outbound text message.
type SMSRequest struct {
	To   string
	From string
	Body string
}

// MessageReceipt is the provider's acknowledgement of a sent SMS.
type MessageReceipt struct {
	Sid    string
	Status string
}

// Provider is the outbound telephony surface used by the dispatcher.
type Provider interface {
	PlaceCall(ctx context.Context, req CallRequest) (*CallReceipt, error)
	SendSMS(ctx context.Context, req SMSRequest) (*MessageReceipt, error)
}

// StatusCallbackEvents are the lifecycle events requested for every call.
var StatusCallbackEvents = []string{"initiated", "ringing", "answered", "completed"}

// Ensure the providers implement Provider.
var (
	_ Provider = (*TwilioClient)(nil)
	_ Provider = (*MockProvider)(nil)
)
