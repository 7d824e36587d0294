package certauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/config"
	"github.com/your-org/certauth-service/internal/domain"
)

func newTestCELHook(t *testing.T, expression string) *CELHook {
	t.Helper()

	hook, err := NewCELHook(config.CELHookConfig{
		Enabled:    true,
		Expression: expression,
		CacheSize:  10,
	}, zap.NewNop())
	require.NoError(t, err)
	return hook
}

func newValidatedContext(t *testing.T) *ValidatedContext {
	t.Helper()

	ca := newTestCA(t, "cel-ca")
	leaf := ca.issueLeaf(t, defaultLeafOptions())
	cert, err := domain.ParseCertificate(leaf.Raw)
	require.NoError(t, err)

	return &ValidatedContext{Certificate: cert, SelfSigned: false}
}

func TestCELHook_TrueDefers(t *testing.T) {
	hook := newTestCELHook(t, `cert.common_name == "test-client"`)

	outcome, err := hook.TryValidate(context.Background(), newValidatedContext(t))
	require.NoError(t, err)
	assert.Nil(t, outcome, "true defers to default claims")
}

func TestCELHook_FalseRejects(t *testing.T) {
	hook := newTestCELHook(t, `cert.common_name == "someone-else"`)

	outcome, err := hook.TryValidate(context.Background(), newValidatedContext(t))
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.True(t, outcome.IsRejected())
}

func TestCELHook_CancelledContext(t *testing.T) {
	hook := newTestCELHook(t, `true`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := hook.TryValidate(ctx, newValidatedContext(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, outcome)
}

func TestCELHook_CertificateFields(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{"dns names", `"client.example.org" in cert.dns_names`},
		{"emails", `"client@example.org" in cert.emails`},
		{"self signed flag", `!cert.self_signed`},
		{"subject", `cert.subject.contains("test-client")`},
		{"issuer", `cert.issuer.contains("cel-ca")`},
		{"thumbprint length", `cert.thumbprint.size() == 64`},
		{"validity window", `cert.not_before < now && now < cert.not_after`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook := newTestCELHook(t, tt.expression)

			outcome, err := hook.TryValidate(context.Background(), newValidatedContext(t))
			require.NoError(t, err)
			assert.Nil(t, outcome, "expression should hold for the test certificate")
		})
	}
}

func TestNewCELHook_CompileErrors(t *testing.T) {
	t.Run("syntax error", func(t *testing.T) {
		_, err := NewCELHook(config.CELHookConfig{Expression: `cert.common_name ==`}, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("non-boolean result", func(t *testing.T) {
		_, err := NewCELHook(config.CELHookConfig{Expression: `cert.common_name`}, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boolean")
	})
}

func TestCELHook_SetExpression(t *testing.T) {
	hook := newTestCELHook(t, `true`)

	require.NoError(t, hook.SetExpression(`cert.common_name == "nobody"`))

	outcome, err := hook.TryValidate(context.Background(), newValidatedContext(t))
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.True(t, outcome.IsRejected())

	assert.Error(t, hook.SetExpression(`not an expression !!`))
}

func TestCELHook_CacheEviction(t *testing.T) {
	hook, err := NewCELHook(config.CELHookConfig{
		Expression: `true`,
		CacheSize:  2,
	}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, hook.SetExpression(`false`))
	require.NoError(t, hook.SetExpression(`1 < 2`))
	require.NoError(t, hook.SetExpression(`2 < 3`))

	assert.LessOrEqual(t, hook.CacheSize(), 2)
}
