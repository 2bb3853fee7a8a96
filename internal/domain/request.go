package domain

// AnalyzeRequest represents the request to score a transcript.
type AnalyzeRequest struct {
	SessionID string    `json:"session_id,omitempty"`
	Messages  []Message `json:"messages" validate:"required,dive"`
}

// AnalyzeResponse represents the response for a scored transcript.
type AnalyzeResponse struct {
	Success  bool           `json:"success"`
	Analysis CrisisAnalysis `json:"analysis"`
}

// NotifyRequest represents the request to alert a person's emergency contacts.
type NotifyRequest struct {
	SessionID string             `json:"session_id,omitempty"`
	Person    Person             `json:"person"`
	Contacts  []EmergencyContact `json:"contacts" validate:"dive"`
	Messages  []Message          `json:"messages" validate:"required,dive"`
}

// NotifyResponse represents the outcome of a notify request.
type NotifyResponse struct {
	Success          bool                `json:"success"`
	Message          string              `json:"message"`
	ContactsNotified int                 `json:"contacts_notified"`
	Analysis         CrisisAnalysis      `json:"analysis"`
	Report           *NotificationReport `json:"report"`
}

// TestAlertRequest represents an operator-triggered test SMS.
type TestAlertRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	ContactName string `json:"contact_name,omitempty"`
}

// StatusCallback is the provider's lifecycle callback form.
type StatusCallback struct {
	CallSid      string `form:"CallSid"`
	CallStatus   string `form:"CallStatus"`
	CallDuration string `form:"CallDuration"`
}

// DigitCallback is the provider's digit-capture callback form.
type DigitCallback struct {
	CallSid string `form:"CallSid"`
	Digits  string `form:"Digits"`
}

// ErrorResponse is the JSON body for failed API requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// TestAlertResponse reports the provider's acknowledgement of a test SMS.
type TestAlertResponse struct {
	Success             bool   `json:"success"`
	Message             string `json:"message"`
	ProviderReferenceID string `json:"provider_reference_id,omitempty"`
	ProviderStatus      string `json:"provider_status,omitempty"`
}

// ResourcesResponse lists crisis hotlines.
type ResourcesResponse struct {
	Success   bool            `json:"success"`
	Resources CrisisResources `json:"resources"`
	Message   string          `json:"message"`
}

// CallDetail is a stored call with its callback history.
type CallDetail struct {
	Session CallSession `json:"session"`
	Events  []CallEvent `json:"events"`
}
