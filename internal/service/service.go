// Package service wires analysis, policy, dispatch and call tracking into the
// operations exposed over HTTP.
package service

import (
	"github.com/xiaot623/lifeline/internal/adapter/telephony"
	"github.com/xiaot623/lifeline/internal/calls"
	"github.com/xiaot623/lifeline/internal/config"
	"github.com/xiaot623/lifeline/internal/crisis"
	"github.com/xiaot623/lifeline/internal/notify"
	"github.com/xiaot623/lifeline/internal/observability"
	"github.com/xiaot623/lifeline/internal/repository"
	"github.com/xiaot623/lifeline/policy"
)

// Service holds the collaborators behind every API operation.
type Service struct {
	store        repository.Store
	analyzer     *crisis.Analyzer
	dispatcher   *notify.Dispatcher
	tracker      *calls.Tracker
	telephony    telephony.Provider
	config       *config.Config
	policyEngine *policy.Engine
	metrics      *observability.Metrics
}

// New creates a service. provider may be nil when telephony is not configured.
func New(store repository.Store, analyzer *crisis.Analyzer, dispatcher *notify.Dispatcher, tracker *calls.Tracker, provider telephony.Provider, cfg *config.Config, policyEngine *policy.Engine, metrics *observability.Metrics) *Service {
	return &Service{
		store:        store,
		analyzer:     analyzer,
		dispatcher:   dispatcher,
		tracker:      tracker,
		telephony:    provider,
		config:       cfg,
		policyEngine: policyEngine,
		metrics:      metrics,
	}
}

// Metrics returns the service's metric set, possibly nil.
func (s *Service) Metrics() *observability.Metrics {
	return s.metrics
}
