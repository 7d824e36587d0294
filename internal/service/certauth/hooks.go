package certauth

import (
	"context"

	"github.com/your-org/certauth-service/internal/domain"
)

// ValidatedContext carries what a validate hook may inspect after a
// successful chain build.
type ValidatedContext struct {
	Certificate *domain.Certificate
	SelfSigned  bool
}

// ValidateHook runs after a successful chain build and may override the
// default claims derivation. A nil outcome with a nil error defers to the
// built-in behavior. A non-nil error is an unexpected failure and routes
// through the failure hook.
type ValidateHook interface {
	TryValidate(ctx context.Context, vc *ValidatedContext) (*domain.Outcome, error)
}

// FailureHook runs when an unexpected error occurs anywhere in the
// decision flow. A non-nil outcome substitutes for the error; a nil
// outcome lets the error propagate to the caller unchanged.
type FailureHook interface {
	TryRecover(ctx context.Context, cause error) (*domain.Outcome, error)
}

// NopValidateHook always defers to the default claims derivation.
type NopValidateHook struct{}

func (NopValidateHook) TryValidate(context.Context, *ValidatedContext) (*domain.Outcome, error) {
	return nil, nil
}

// NopFailureHook never recovers; errors propagate.
type NopFailureHook struct{}

func (NopFailureHook) TryRecover(context.Context, error) (*domain.Outcome, error) {
	return nil, nil
}
