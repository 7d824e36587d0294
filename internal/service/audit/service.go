// Package audit records security-relevant events, primarily the outcome of
// every certificate authentication decision.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/certauth-service/internal/config"
	"github.com/your-org/certauth-service/internal/domain"
	"github.com/your-org/certauth-service/pkg/logger"
)

// Exporter defines the interface for audit event exporters.
type Exporter interface {
	// Export exports an audit event.
	Export(ctx context.Context, event *domain.AuditEvent) error

	// Name returns the exporter name.
	Name() string

	// Close closes the exporter.
	Close() error
}

// Service provides audit logging capabilities.
type Service struct {
	exporters     []Exporter
	enabledEvents map[domain.AuditEventType]bool
	enabled       bool
}

// NewService creates a new audit service.
func NewService(cfg config.AuditConfig) *Service {
	s := &Service{
		enabledEvents: make(map[domain.AuditEventType]bool),
		enabled:       cfg.Enabled,
	}

	for _, event := range cfg.Events {
		s.enabledEvents[domain.AuditEventType(event)] = true
	}

	if cfg.Export.Stdout.Enabled {
		s.exporters = append(s.exporters, NewStdoutExporter(cfg.Export.Stdout))
	}

	return s
}

// Start initializes the audit service.
func (s *Service) Start(ctx context.Context) error {
	logger.Info("audit service started",
		logger.Bool("enabled", s.enabled),
		logger.Int("exporters", len(s.exporters)),
	)
	return nil
}

// Stop shuts down the audit service.
func (s *Service) Stop() error {
	for _, exp := range s.exporters {
		if err := exp.Close(); err != nil {
			logger.Warn("error closing exporter",
				logger.String("exporter", exp.Name()),
				logger.Err(err),
			)
		}
	}
	return nil
}

// Log logs an audit event.
func (s *Service) Log(ctx context.Context, event *domain.AuditEvent) {
	if !s.enabled {
		return
	}

	if !s.enabledEvents[event.EventType] {
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	for _, exp := range s.exporters {
		if err := exp.Export(ctx, event); err != nil {
			logger.Warn("failed to export audit event",
				logger.String("exporter", exp.Name()),
				logger.Err(err),
			)
		}
	}
}

// LogAuthnDecision logs the outcome of one certificate authentication
// attempt. cert may be nil when no certificate was presented.
func (s *Service) LogAuthnDecision(ctx context.Context, cert *domain.Certificate, selfSigned bool, outcome *domain.Outcome, req domain.AuditRequest, duration time.Duration) {
	if !s.enabled {
		return
	}

	event := domain.NewAuditEvent(domain.AuditEventAuthnDecision)
	event.Request = req

	if cert != nil {
		event.Subject = domain.AuditSubject{
			CommonName: cert.CommonName(),
			Subject:    cert.SubjectDN(),
			Issuer:     cert.IssuerDN(),
			Thumbprint: cert.Thumbprint(),
			Serial:     cert.SerialNumber(),
			SelfSigned: selfSigned,
		}
	}

	event.Decision = domain.AuditDecision{
		Status:     outcome.Status,
		DurationMs: float64(duration.Microseconds()) / 1000.0,
	}
	if outcome.Reason != "" {
		event.Decision.Reasons = append(event.Decision.Reasons, outcome.Reason)
	}
	for _, cs := range outcome.ChainStatus {
		event.Decision.Reasons = append(event.Decision.Reasons, cs.Status+": "+cs.Detail)
	}

	s.Log(ctx, event)
}

// LogAuthnError logs an authentication attempt that ended with a fatal
// error instead of an outcome.
func (s *Service) LogAuthnError(ctx context.Context, err error, req domain.AuditRequest, duration time.Duration) {
	if !s.enabled {
		return
	}

	event := domain.NewAuditEvent(domain.AuditEventAuthnDecision)
	event.Request = req
	event.Decision = domain.AuditDecision{
		Status:     domain.StatusRejected,
		Reasons:    []string{err.Error()},
		DurationMs: float64(duration.Microseconds()) / 1000.0,
	}
	event.SetMetadata("fatal", true)

	s.Log(ctx, event)
}

// LogConfigReload logs a configuration reload attempt.
func (s *Service) LogConfigReload(ctx context.Context, version string, err error) {
	if !s.enabled {
		return
	}

	event := domain.NewAuditEvent(domain.AuditEventConfigReload)
	event.SetMetadata("version", version)

	if err != nil {
		event.Decision = domain.AuditDecision{
			Status:  domain.StatusRejected,
			Reasons: []string{err.Error()},
		}
	} else {
		event.Decision = domain.AuditDecision{Status: domain.StatusValid}
	}

	s.Log(ctx, event)
}

// StdoutExporter exports audit events to stdout.
type StdoutExporter struct {
	format string
}

// NewStdoutExporter creates a new stdout exporter.
func NewStdoutExporter(cfg config.StdoutExportConfig) *StdoutExporter {
	return &StdoutExporter{
		format: cfg.Format,
	}
}

// Export exports an event to stdout.
func (e *StdoutExporter) Export(ctx context.Context, event *domain.AuditEvent) error {
	if e.format == "json" {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		logger.Info("audit",
			logger.String("event_type", string(event.EventType)),
			logger.Any("data", json.RawMessage(data)),
		)
	} else {
		logger.Info("audit",
			logger.String("event_type", string(event.EventType)),
			logger.String("event_id", event.EventID),
			logger.String("subject", event.Subject.Subject),
			logger.String("thumbprint", event.Subject.Thumbprint),
			logger.String("status", string(event.Decision.Status)),
		)
	}
	return nil
}

// Name returns the exporter name.
func (e *StdoutExporter) Name() string {
	return "stdout"
}

// Close closes the exporter.
func (e *StdoutExporter) Close() error {
	return nil
}
