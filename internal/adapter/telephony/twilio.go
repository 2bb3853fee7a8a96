package telephony

import (
	"context"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"
)

// twilioAPI is the subset of the Twilio REST API used here.
type twilioAPI interface {
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioClient is a Provider backed by the Twilio REST API.
type TwilioClient struct {
	api     twilioAPI
	limiter *rate.Limiter
	timeout time.Duration
}

// NewTwilioClient creates a client limited to maxRPS outbound requests per second.
func NewTwilioClient(accountSID, authToken string, maxRPS int, timeout time.Duration) *TwilioClient {
	rc := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	rc.SetTimeout(timeout)
	return newTwilioClient(rc.Api, maxRPS, timeout)
}

func newTwilioClient(api twilioAPI, maxRPS int, timeout time.Duration) *TwilioClient {
	limit := rate.Inf
	if maxRPS > 0 {
		limit = rate.Limit(maxRPS)
	}
	return &TwilioClient{
		api:     api,
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
	}
}

// PlaceCall starts a call that executes req.Script.
func (c *TwilioClient) PlaceCall(ctx context.Context, req CallRequest) (*CallReceipt, error) {
	params := &openapi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetTwiml(req.Script)
	if req.StatusCallback != "" {
		params.SetStatusCallback(req.StatusCallback)
		params.SetStatusCallbackEvent(StatusCallbackEvents)
		params.SetStatusCallbackMethod("POST")
	}

	var call *openapi.ApiV2010Call
	err := c.do(ctx, func() error {
		var err error
		call, err = c.api.CreateCall(params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place call: %w", err)
	}
	return &CallReceipt{Sid: deref(call.Sid), Status: deref(call.Status)}, nil
}

// SendSMS sends a text message.
func (c *TwilioClient) SendSMS(ctx context.Context, req SMSRequest) (*MessageReceipt, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetBody(req.Body)

	var msg *openapi.ApiV2010Message
	err := c.do(ctx, func() error {
		var err error
		msg, err = c.api.CreateMessage(params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send sms: %w", err)
	}
	return &MessageReceipt{Sid: deref(msg.Sid), Status: deref(msg.Status)}, nil
}

// do waits for the limiter within ctx and the client timeout, then runs fn.
// The SDK takes no context: once issued, a request is bounded by the HTTP
// client timeout and its real outcome is always returned, so a call Twilio
// accepted is never reported as failed.
func (c *TwilioClient) do(ctx context.Context, fn func() error) error {
	waitCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.limiter.Wait(waitCtx); err != nil {
		return err
	}
	return fn()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
