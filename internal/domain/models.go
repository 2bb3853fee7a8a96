package domain

import "time"

// InterventionThreshold is the score at which automated notification is authorized.
const InterventionThreshold = 10

// Message is a single conversation turn. The core only reads it.
type Message struct {
	Role      Role      `json:"role" validate:"required,oneof=user assistant"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// CrisisAnalysis is the immutable result of scoring one transcript.
type CrisisAnalysis struct {
	Score                int         `json:"score"`
	Level                CrisisLevel `json:"level"`
	MatchedKeywords      []string    `json:"matched_keywords"`
	RequiresIntervention bool        `json:"requires_intervention"`
	IsCrisis             bool        `json:"is_crisis"`
	ComputedAt           time.Time   `json:"computed_at"`
}

// EmergencyContact is a pre-registered person to alert.
type EmergencyContact struct {
	Name         string `json:"name" validate:"required"`
	PhoneNumber  string `json:"phone_number" validate:"required,phone"`
	Relationship string `json:"relationship,omitempty"`
	IsPrimary    bool   `json:"is_primary,omitempty"`
}

// Person identifies whose crisis is being reported.
type Person struct {
	Name string `json:"name" validate:"required"`
}

// DispatchAttempt records one channel's delivery try to one contact.
type DispatchAttempt struct {
	ContactIndex        int              `json:"contact_index"`
	Contact             EmergencyContact `json:"contact"`
	Channel             Channel          `json:"channel"`
	Outcome             Outcome          `json:"outcome"`
	ProviderReferenceID string           `json:"provider_reference_id,omitempty"`
	ProviderStatus      string           `json:"provider_status,omitempty"`
	ErrorKind           ChannelErrorKind `json:"error_kind,omitempty"`
	ErrorDetail         string           `json:"error_detail,omitempty"`
	Timestamp           time.Time        `json:"timestamp"`
}

// Succeeded reports whether the attempt delivered.
func (a DispatchAttempt) Succeeded() bool {
	return a.Outcome == OutcomeSuccess
}

// NotificationReport is the ordered outcome of one dispatch.
type NotificationReport struct {
	ReportID         string            `json:"report_id"`
	SessionID        string            `json:"session_id,omitempty"`
	Attempts         []DispatchAttempt `json:"attempts"`
	ContactsNotified int               `json:"contacts_notified"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      time.Time         `json:"completed_at"`
}

// CallSession tracks one placed call through its provider callbacks.
type CallSession struct {
	ProviderCallID string    `json:"provider_call_id"`
	ReportID       string    `json:"report_id,omitempty"`
	ContactName    string    `json:"contact_name,omitempty"`
	ToNumber       string    `json:"to_number,omitempty"`
	State          CallState `json:"state"`
	LastDigit      string    `json:"last_digit,omitempty"`
	SpokenText     string    `json:"spoken_text,omitempty"`
	AudioURL       string    `json:"audio_url,omitempty"`
	Replays        int       `json:"replays"`
	DurationSec    int       `json:"duration_sec,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CallEvent is an accepted or rejected provider callback, kept for audit.
type CallEvent struct {
	ProviderCallID string        `json:"provider_call_id"`
	Kind           CallEventKind `json:"kind"`
	From           CallState     `json:"from,omitempty"`
	To             CallState     `json:"to,omitempty"`
	Digit          string        `json:"digit,omitempty"`
	Accepted       bool          `json:"accepted"`
	Reason         string        `json:"reason,omitempty"`
	ReportID       string        `json:"report_id,omitempty"`
	Ts             time.Time     `json:"ts"`
}

// CrisisRecord is a persisted analysis tied to a conversation session.
type CrisisRecord struct {
	SessionID string         `json:"session_id"`
	Analysis  CrisisAnalysis `json:"analysis"`
}

// Hotline is one entry of the static crisis resource set.
type Hotline struct {
	Suicide string `json:"suicide"`
	Crisis  string `json:"crisis"`
	Text    string `json:"text,omitempty"`
}

// CrisisResources groups hotlines by region.
type CrisisResources struct {
	US            Hotline `json:"us"`
	International Hotline `json:"international"`
}
