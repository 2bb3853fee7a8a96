package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/xiaot623/lifeline/internal/adapter/telephony"
	"github.com/xiaot623/lifeline/internal/crisis"
	"github.com/xiaot623/lifeline/internal/domain"
	"github.com/xiaot623/lifeline/internal/notify"
	"github.com/xiaot623/lifeline/policy"
)

// AnalyzeConversation scores a transcript and, when a session is given,
// keeps the result in its history.
func (s *Service) AnalyzeConversation(ctx context.Context, req *domain.AnalyzeRequest) (domain.CrisisAnalysis, error) {
	if err := domain.Validate(req); err != nil {
		return domain.CrisisAnalysis{}, err
	}

	return s.analyze(ctx, req.SessionID, req.Messages), nil
}

func (s *Service) analyze(ctx context.Context, sessionID string, messages []domain.Message) domain.CrisisAnalysis {
	analysis := s.analyzer.Analyze(messages)
	s.metrics.RecordAnalysis(analysis.Level)

	if analysis.IsCrisis {
		log.Printf("WARN: crisis detected (session: %s, level: %s, score: %d)", sessionID, analysis.Level, analysis.Score)
	}
	if sessionID != "" {
		rec := &domain.CrisisRecord{SessionID: sessionID, Analysis: analysis}
		if err := s.store.SaveCrisisAnalysis(ctx, rec); err != nil {
			log.Printf("WARN: failed to save analysis for session %s: %v", sessionID, err)
		}
	}
	return analysis
}

// NotifyContacts scores the transcript, asks the policy whether to act, and
// alerts every contact when it says so.
func (s *Service) NotifyContacts(ctx context.Context, req *domain.NotifyRequest) (*domain.NotifyResponse, error) {
	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	if len(req.Contacts) == 0 {
		return nil, domain.NewValidationError("contacts", "no emergency contacts configured")
	}

	analysis := s.analyze(ctx, req.SessionID, req.Messages)

	decision, err := s.policyEngine.Evaluate(ctx, policy.Input{
		SessionID: req.SessionID,
		Analysis:  analysis,
		Contacts:  len(req.Contacts),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate notification policy: %w", err)
	}
	if !decision.Notify() {
		return &domain.NotifyResponse{Success: false, Message: decision.Reason, Analysis: analysis}, domain.NewValidationError("", decision.Reason)
	}

	narrative := crisis.ComposeSummary(req.Person, req.Messages, analysis)
	reportID := "rep_" + uuid.New().String()

	report, err := s.dispatcher.Dispatch(ctx, req.Contacts, narrative, notify.Options{
		ReportID:  reportID,
		SessionID: req.SessionID,
	})
	if err != nil {
		return nil, err
	}

	// The dispatch already happened; storage must not depend on the caller.
	if err := s.store.SaveReport(context.WithoutCancel(ctx), report); err != nil {
		log.Printf("WARN: failed to save report %s: %v", report.ReportID, err)
	}

	return &domain.NotifyResponse{
		Success:          true,
		Message:          "Emergency contacts notified",
		ContactsNotified: report.ContactsNotified,
		Analysis:         analysis,
		Report:           report,
	}, nil
}

// Resources returns the static hotline set.
func (s *Service) Resources() domain.ResourcesResponse {
	return domain.ResourcesResponse{
		Success:   true,
		Resources: crisis.Resources(),
		Message:   crisis.ResourcesMessage,
	}
}

// SendTestAlert texts a single number so operators can verify delivery.
func (s *Service) SendTestAlert(ctx context.Context, req *domain.TestAlertRequest) (*domain.TestAlertResponse, error) {
	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	if s.telephony == nil {
		return nil, &domain.ConfigurationError{Component: "telephony", Message: "provider client missing"}
	}

	if s.config.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ProviderTimeout)
		defer cancel()
	}

	body := fmt.Sprintf("This is a test of the %s emergency notification system. No action is required.", s.config.OrgName)
	receipt, err := s.telephony.SendSMS(ctx, telephony.SMSRequest{
		To:   req.PhoneNumber,
		From: s.config.TwilioPhoneNumber,
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send test alert: %w", err)
	}

	return &domain.TestAlertResponse{
		Success:             true,
		Message:             "Test notification sent",
		ProviderReferenceID: receipt.Sid,
		ProviderStatus:      receipt.Status,
	}, nil
}

// GetReport returns a stored notification report.
func (s *Service) GetReport(ctx context.Context, reportID string) (*domain.NotificationReport, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, domain.ErrNotFound
	}
	return report, nil
}

// GetCall returns a stored call session and its callback history.
func (s *Service) GetCall(ctx context.Context, callID string) (*domain.CallDetail, error) {
	session, err := s.store.GetCallSession(ctx, callID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	events, err := s.store.ListCallEvents(ctx, callID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.CallEvent{}
	}
	return &domain.CallDetail{Session: *session, Events: events}, nil
}
