package telephony

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/xiaot623/lifeline/internal/config"
)

type fakeAPI struct {
	calls    []*openapi.CreateCallParams
	messages []*openapi.CreateMessageParams
	callErr  error
	delay    time.Duration
}

func (f *fakeAPI) CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error) {
	time.Sleep(f.delay)
	f.calls = append(f.calls, params)
	if f.callErr != nil {
		return nil, f.callErr
	}
	sid, status := "CA123", "queued"
	return &openapi.ApiV2010Call{Sid: &sid, Status: &status}, nil
}

func (f *fakeAPI) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.messages = append(f.messages, params)
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioPlaceCall(t *testing.T) {
	api := &fakeAPI{}
	c := newTwilioClient(api, 0, time.Second)

	receipt, err := c.PlaceCall(context.Background(), CallRequest{
		To:             "+15551230001",
		From:           "+15550000000",
		Script:         "<Response/>",
		StatusCallback: "https://example.org/api/emergency/call-status",
	})
	require.NoError(t, err)
	assert.Equal(t, "CA123", receipt.Sid)
	assert.Equal(t, "queued", receipt.Status)

	require.Len(t, api.calls, 1)
	p := api.calls[0]
	assert.Equal(t, "+15551230001", *p.To)
	assert.Equal(t, "+15550000000", *p.From)
	assert.Equal(t, "<Response/>", *p.Twiml)
	assert.Equal(t, "POST", *p.StatusCallbackMethod)
	assert.Equal(t, StatusCallbackEvents, *p.StatusCallbackEvent)
}

func TestTwilioSendSMS(t *testing.T) {
	api := &fakeAPI{}
	c := newTwilioClient(api, 5, time.Second)

	receipt, err := c.SendSMS(context.Background(), SMSRequest{To: "+15551230001", From: "+15550000000", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "SM123", receipt.Sid)
	assert.Equal(t, "", receipt.Status)
	require.Len(t, api.messages, 1)
	assert.Equal(t, "hi", *api.messages[0].Body)
}

func TestTwilioErrorsAreWrapped(t *testing.T) {
	boom := errors.New("21211 invalid To")
	c := newTwilioClient(&fakeAPI{callErr: boom}, 0, time.Second)

	_, err := c.PlaceCall(context.Background(), CallRequest{To: "+1", From: "+2"})
	assert.ErrorIs(t, err, boom)
}

func TestTwilioSlowResponseKeepsReceipt(t *testing.T) {
	api := &fakeAPI{delay: 50 * time.Millisecond}
	c := newTwilioClient(api, 0, 10*time.Millisecond)

	receipt, err := c.PlaceCall(context.Background(), CallRequest{To: "+1", From: "+2"})
	require.NoError(t, err)
	assert.Equal(t, "CA123", receipt.Sid)
	assert.Len(t, api.calls, 1)
}

func TestTwilioRateLimitWaitTimesOut(t *testing.T) {
	api := &fakeAPI{}
	c := newTwilioClient(api, 1, 20*time.Millisecond)

	_, err := c.SendSMS(context.Background(), SMSRequest{To: "+1", From: "+2", Body: "a"})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.SendSMS(context.Background(), SMSRequest{To: "+1", From: "+2", Body: "b"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, api.messages, 1, "a request that never got a slot is not sent")
}

func TestTwilioCanceledContextSendsNothing(t *testing.T) {
	api := &fakeAPI{}
	c := newTwilioClient(api, 1, time.Second)
	_, err := c.SendSMS(context.Background(), SMSRequest{To: "+1", From: "+2", Body: "a"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.PlaceCall(ctx, CallRequest{To: "+1", From: "+2"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.calls)
}

func TestMockProviderFailureInjection(t *testing.T) {
	m := NewMockProvider()
	m.FailCall = func(to string) error {
		if to == "+15550000001" {
			return errors.New("unreachable")
		}
		return nil
	}

	_, err := m.PlaceCall(context.Background(), CallRequest{To: "+15550000001"})
	assert.Error(t, err)
	r, err := m.PlaceCall(context.Background(), CallRequest{To: "+15550000002"})
	require.NoError(t, err)
	assert.NotEmpty(t, r.Sid)
	_, err = m.SendSMS(context.Background(), SMSRequest{To: "+15550000001", Body: "x"})
	require.NoError(t, err)

	sent := m.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "call", sent[0].Kind)
	assert.Equal(t, "sms", sent[2].Kind)
}

func TestNewProvider(t *testing.T) {
	assert.IsType(t, &MockProvider{}, NewProvider(&config.Config{Mode: "MOCK"}))
	assert.Nil(t, NewProvider(&config.Config{TwilioAccountSID: "AC1"}))

	p := NewProvider(&config.Config{
		TwilioAccountSID:  "AC1",
		TwilioAuthToken:   "tok",
		TwilioPhoneNumber: "+15550000000",
		ProviderTimeout:   time.Second,
	})
	assert.IsType(t, &TwilioClient{}, p)
}

func sign(token, url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := url
	for _, k := range keys {
		payload += k + params[k]
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSignatureValidator(t *testing.T) {
	url := "https://alerts.example.org/api/emergency/call-status"
	params := map[string]string{"CallSid": "CA1", "CallStatus": "ringing"}
	v := NewSignatureValidator("secret")

	assert.True(t, v.Valid(url, params, sign("secret", url, params)))
	assert.False(t, v.Valid(url, params, sign("other", url, params)))
	assert.False(t, v.Valid(url, params, ""))
}
