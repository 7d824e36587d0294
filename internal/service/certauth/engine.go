package certauth

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/domain"
	"github.com/your-org/certauth-service/internal/service/metrics"
	pkgerrors "github.com/your-org/certauth-service/pkg/errors"
	"github.com/your-org/certauth-service/pkg/security"
)

// Input is one authentication attempt as handed over by the transport
// layer: whether the channel is secured, and the peer certificate in DER
// encoding if one was presented.
type Input struct {
	ChannelSecured bool
	RawCertificate []byte
}

// Engine turns a presented certificate into exactly one outcome per
// attempt. Engines are safe for concurrent use; the active settings
// snapshot is read atomically per attempt and attempts share no other
// state.
type Engine struct {
	settings  atomic.Pointer[Settings]
	validator *ChainValidator

	validateHook ValidateHook
	failureHook  FailureHook

	metrics *metrics.Metrics
	log     *zap.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithValidateHook installs a hook consulted after a successful chain
// build.
func WithValidateHook(h ValidateHook) EngineOption {
	return func(e *Engine) {
		if h != nil {
			e.validateHook = h
		}
	}
}

// WithFailureHook installs a hook consulted on unexpected errors.
func WithFailureHook(h FailureHook) EngineOption {
	return func(e *Engine) {
		if h != nil {
			e.failureHook = h
		}
	}
}

// WithMetrics installs the metrics recorder.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates a decision engine with the given initial settings.
func NewEngine(settings *Settings, validator *ChainValidator, log *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		validator:    validator,
		validateHook: NopValidateHook{},
		failureHook:  NopFailureHook{},
		log:          log.Named("decision-engine"),
	}
	e.settings.Store(settings)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// UpdateSettings atomically swaps the active settings snapshot. In-flight
// attempts keep the snapshot they started with.
func (e *Engine) UpdateSettings(s *Settings) {
	e.settings.Store(s)
}

// Settings returns the active settings snapshot.
func (e *Engine) Settings() *Settings {
	return e.settings.Load()
}

// Authenticate runs one decision. It always produces exactly one outcome
// or one error, never both. An unsecured channel or an absent certificate
// is a neutral NoResult so the caller can fall back to another scheme.
func (e *Engine) Authenticate(ctx context.Context, in Input) (*domain.Outcome, error) {
	start := time.Now()

	outcome, selfSigned, err := e.authenticate(ctx, in)
	if err != nil {
		outcome, err = e.recover(ctx, err)
		if err != nil {
			return nil, err
		}
	}

	if e.metrics != nil {
		e.metrics.RecordDecision(string(outcome.Status), selfSigned, time.Since(start))
	}

	return outcome, nil
}

func (e *Engine) authenticate(ctx context.Context, in Input) (outcome *domain.Outcome, selfSigned bool, err error) {
	if !in.ChannelSecured {
		return domain.NoResult(), false, nil
	}

	if len(in.RawCertificate) == 0 {
		return domain.NoResult(), false, nil
	}

	cert, err := domain.ParseCertificate(in.RawCertificate)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", pkgerrors.ErrCertificateMalformed, err)
	}

	settings := e.settings.Load()
	selfSigned = IsSelfSigned(cert.Leaf)

	// Type gate runs before any chain work
	if rejected := e.gate(cert, selfSigned, settings); rejected != nil {
		return rejected, selfSigned, nil
	}

	policy := BuildChainPolicy(cert.Leaf, selfSigned, settings)

	chainCtx := ctx
	if settings.ChainTimeout > 0 {
		var cancel context.CancelFunc
		chainCtx, cancel = context.WithTimeout(ctx, settings.ChainTimeout)
		defer cancel()
	}

	statuses, err := e.validator.Validate(chainCtx, cert.Leaf, policy)
	if err != nil {
		return nil, selfSigned, err
	}
	if e.metrics != nil {
		codes := make([]string, 0, len(statuses))
		for _, s := range statuses {
			codes = append(codes, s.Status)
		}
		e.metrics.RecordChainValidation(len(statuses) == 0, codes)
	}
	if len(statuses) > 0 {
		e.logChainFailure(cert, statuses)
		return domain.RejectChain(statuses), selfSigned, nil
	}

	hookOutcome, err := e.validateHook.TryValidate(ctx, &ValidatedContext{
		Certificate: cert,
		SelfSigned:  selfSigned,
	})
	if err != nil {
		return nil, selfSigned, err
	}
	if hookOutcome != nil {
		if e.metrics != nil {
			e.metrics.RecordHookInvocation("validate", string(hookOutcome.Status))
		}
		if hookOutcome.IsValid() {
			hookOutcome = hookOutcome.WithProperty(domain.PropertyCertificate, cert.EncodeBase64())
		}
		return hookOutcome, selfSigned, nil
	}

	claims := MapClaims(cert, settings.ClaimsIssuerLabel)
	outcome = domain.Valid(claims).
		WithProperty(domain.PropertyCertificate, cert.EncodeBase64())

	e.log.Debug("certificate authenticated",
		zap.String("subject", cert.SubjectDN()),
		zap.Bool("self_signed", selfSigned),
		zap.Int("claims", len(claims)))

	return outcome, selfSigned, nil
}

// gate rejects certificate categories the settings do not permit, plus
// certificates outside the pinned set when pinning is configured. Returns
// nil when the certificate may proceed to chain validation.
func (e *Engine) gate(cert *domain.Certificate, selfSigned bool, settings *Settings) *domain.Outcome {
	if selfSigned {
		if !settings.AllowedTypes.Has(domain.CertificateTypeSelfSigned) {
			return domain.Reject("self-signed certificates are not permitted")
		}
	} else {
		if !settings.AllowedTypes.Has(domain.CertificateTypeChained) {
			return domain.Reject("chained certificates are not permitted")
		}
	}

	if len(settings.PinnedThumbprints) > 0 {
		thumbprint := cert.Thumbprint()
		matched := false
		for _, pinned := range settings.PinnedThumbprints {
			if security.SecureCompare(thumbprint, pinned) {
				matched = true
			}
		}
		if !matched {
			return domain.Reject("certificate thumbprint is not in the pinned set")
		}
	}

	return nil
}

// recover routes an unexpected error through the failure hook. Without a
// substitute outcome the error propagates unchanged.
func (e *Engine) recover(ctx context.Context, cause error) (*domain.Outcome, error) {
	outcome, err := e.failureHook.TryRecover(ctx, cause)
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		if e.metrics != nil {
			e.metrics.RecordHookInvocation("failure", string(outcome.Status))
		}
		e.log.Warn("failure hook substituted an outcome",
			zap.String("status", string(outcome.Status)),
			zap.Error(cause))
		return outcome, nil
	}
	return nil, cause
}

func (e *Engine) logChainFailure(cert *domain.Certificate, statuses []domain.ChainStatus) {
	fields := []zap.Field{
		zap.String("subject", cert.SubjectDN()),
		zap.String("issuer", cert.IssuerDN()),
	}
	for _, s := range statuses {
		fields = append(fields, zap.String("chain_status."+s.Status, s.Detail))
	}
	e.log.Info("certificate chain validation failed", fields...)
}
