package certauth

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/config"
	"github.com/your-org/certauth-service/internal/domain"
	pkgerrors "github.com/your-org/certauth-service/pkg/errors"
)

const defaultCELCacheSize = 100

// CELHook is a ValidateHook driven by a CEL expression over certificate
// fields. A true result defers to the default claims derivation; a false
// result rejects the certificate. Compiled programs are cached with LRU
// eviction so configuration reloads that flip between expressions stay
// cheap.
type CELHook struct {
	env        *cel.Env
	expression string
	log        *zap.Logger

	mu       sync.RWMutex
	programs map[string]*celCacheEntry
	order    *list.List
	capacity int
}

type celCacheEntry struct {
	program    cel.Program
	expression string
	element    *list.Element
}

// NewCELHook creates the hook and compiles the configured expression
// eagerly so a bad expression fails at startup, not per request.
func NewCELHook(cfg config.CELHookConfig, log *zap.Logger) (*CELHook, error) {
	capacity := cfg.CacheSize
	if capacity <= 0 {
		capacity = defaultCELCacheSize
	}

	env, err := cel.NewEnv(
		// Certificate fields
		cel.Variable("cert", cel.MapType(cel.StringType, cel.DynType)),

		// Current timestamp
		cel.Variable("now", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	h := &CELHook{
		env:        env,
		expression: cfg.Expression,
		log:        log.Named("cel-hook"),
		programs:   make(map[string]*celCacheEntry),
		order:      list.New(),
		capacity:   capacity,
	}

	if _, err := h.compile(cfg.Expression); err != nil {
		return nil, err
	}

	return h, nil
}

// compile compiles an expression and caches the program with LRU eviction.
func (h *CELHook) compile(expression string) (cel.Program, error) {
	h.mu.RLock()
	if entry, ok := h.programs[expression]; ok {
		h.mu.RUnlock()
		h.mu.Lock()
		if entry, ok := h.programs[expression]; ok {
			h.order.MoveToFront(entry.element)
		}
		h.mu.Unlock()
		return entry.program, nil
	}
	h.mu.RUnlock()

	ast, issues := h.env.Compile(expression)
	if issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("CEL expression must return boolean, got %v", ast.OutputType())
	}

	prg, err := h.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Another goroutine may have added it meanwhile
	if entry, ok := h.programs[expression]; ok {
		h.order.MoveToFront(entry.element)
		return entry.program, nil
	}

	for h.order.Len() >= h.capacity {
		h.evictOldest()
	}

	entry := &celCacheEntry{
		program:    prg,
		expression: expression,
	}
	entry.element = h.order.PushFront(entry)
	h.programs[expression] = entry

	return prg, nil
}

func (h *CELHook) evictOldest() {
	oldest := h.order.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*celCacheEntry)
	delete(h.programs, entry.expression)
	h.order.Remove(oldest)
}

// SetExpression swaps the active expression, compiling it first. Used on
// configuration reload.
func (h *CELHook) SetExpression(expression string) error {
	if _, err := h.compile(expression); err != nil {
		return err
	}
	h.mu.Lock()
	h.expression = expression
	h.mu.Unlock()
	return nil
}

// CacheSize returns the number of cached programs.
func (h *CELHook) CacheSize() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.programs)
}

// TryValidate evaluates the expression against the certificate. Caller
// cancellation propagates into the evaluation.
func (h *CELHook) TryValidate(ctx context.Context, vc *ValidatedContext) (*domain.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.RLock()
	expression := h.expression
	h.mu.RUnlock()

	prg, err := h.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrHookFailed, err)
	}

	out, _, err := prg.ContextEval(ctx, h.buildEvalContext(vc))
	if err != nil {
		return nil, fmt.Errorf("%w: evaluation: %v", pkgerrors.ErrHookFailed, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return nil, fmt.Errorf("%w: expression returned %T, want bool", pkgerrors.ErrHookFailed, out.Value())
	}

	if !result {
		h.log.Info("certificate rejected by expression",
			zap.String("subject", vc.Certificate.SubjectDN()))
		return domain.Reject("certificate rejected by validation expression"), nil
	}

	// True defers to the default claims derivation
	return nil, nil
}

func (h *CELHook) buildEvalContext(vc *ValidatedContext) map[string]any {
	cert := vc.Certificate
	leaf := cert.Leaf

	dnsNames := leaf.DNSNames
	if dnsNames == nil {
		dnsNames = []string{}
	}
	emails := leaf.EmailAddresses
	if emails == nil {
		emails = []string{}
	}
	uris := make([]string, 0, len(leaf.URIs))
	for _, u := range leaf.URIs {
		uris = append(uris, u.String())
	}

	return map[string]any{
		"now": time.Now(),
		"cert": map[string]any{
			"subject":     cert.SubjectDN(),
			"issuer":      cert.IssuerDN(),
			"common_name": cert.CommonName(),
			"serial":      cert.SerialNumber(),
			"thumbprint":  cert.Thumbprint(),
			"dns_names":   dnsNames,
			"emails":      emails,
			"uris":        uris,
			"upn":         cert.UPN(),
			"not_before":  leaf.NotBefore,
			"not_after":   leaf.NotAfter,
			"self_signed": vc.SelfSigned,
		},
	}
}
