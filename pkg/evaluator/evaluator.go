// Package evaluator implements the GoSpel expression evaluation engine.
//
// The evaluator receives a parsed Abstract Syntax Tree (AST) from the parser
// and evaluates it against an [EvaluationContext]. It supports:
//   - Property navigation with a pluggable, capability-ordered accessor list
//   - Variables with nested lexical scoping for function invocation
//   - On-demand type coercion with ordered, fallback-based rules
//   - Structured errors carrying the most specific source position
//
// # Example
//
//	expr, err := parser.Parse("order.total > 100 and #vip")
//	ectx := evaluator.NewEvaluationContext(order)
//	ectx.SetVariable("vip", true)
//	result, err := evaluator.New().Eval(ctx, expr, ectx)
//
// # Concurrency
//
// Evaluation is single-threaded and synchronous per call. The
// EvaluationContext is a shared mutable resource with no internal locking —
// see its documentation for the caller-side discipline.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sandrolain/gospel/pkg/cache"
	"github.com/sandrolain/gospel/pkg/types"
)

// tracer is the gospel tracer instance, bound to the global OTel provider.
// It is a no-op unless the caller installs a provider via otel.SetTracerProvider.
var tracer = otel.Tracer("gospel")

// Evaluator evaluates GoSpel expressions against an EvaluationContext.
type Evaluator struct {
	opts   EvalOptions
	logger *slog.Logger
	cache  *cache.Cache // non-nil when Caching is enabled
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Caching enables expression compilation caching on the facade.
	// When true, compiled expressions are cached by source string.
	// The default cache holds up to 256 entries with LRU eviction.
	Caching bool
	// CacheSize sets the maximum number of cached expressions.
	// Only used when Caching is true and no explicit Cache is provided.
	CacheSize int
	// Cache is a custom expression cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.Cache
	// MaxDepth limits recursion depth during the AST walk.
	MaxDepth int
	// Timeout sets an evaluation timeout. Zero disables it.
	Timeout time.Duration
	// Debug enables per-node debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
	// Tracing wraps each Eval call in an OpenTelemetry span.
	Tracing bool
}

// New creates a new Evaluator with default options.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		Caching:  false,
		MaxDepth: 10000,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	// Initialise expression cache when caching is enabled.
	var c *cache.Cache
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		size := options.CacheSize
		if size <= 0 {
			size = 256
		}
		c = cache.New(size)
	}

	return &Evaluator{
		opts:   options,
		logger: options.Logger,
		cache:  c,
	}
}

// Cache returns the expression cache, or nil if caching is disabled.
func (e *Evaluator) Cache() *cache.Cache {
	return e.cache
}

// Eval evaluates an expression against the given evaluation context.
//
// Each call owns a fresh ExpressionState; the EvaluationContext may be
// shared across calls subject to the sharing contract documented on
// [EvaluationContext].
func (e *Evaluator) Eval(ctx context.Context, expr *types.Expression, ectx *EvaluationContext) (interface{}, error) {
	if expr == nil || expr.AST() == nil {
		return nil, fmt.Errorf("invalid expression")
	}
	if ectx == nil {
		ectx = NewEvaluationContext(nil)
	}

	// Apply timeout if configured
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	logger := e.logger
	if e.opts.Debug {
		logger = logger.With(slog.String("eval_id", uuid.NewString()))
		logger.Debug("evaluation starting", slog.String("source", expr.Source()))
	}

	var span trace.Span
	if e.opts.Tracing {
		ctx, span = tracer.Start(ctx, "gospel.eval",
			trace.WithAttributes(attribute.String("expression.source", expr.Source())),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
	}

	state := NewExpressionState(ectx)
	state.logger = logger
	result, err := e.evalNode(ctx, expr.AST(), state)

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithCaching enables or disables expression compilation caching.
// When enabled, a default LRU cache of 256 entries is created.
// To control the cache size use WithCacheSize; to supply your own cache use WithCache.
func WithCaching(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached expressions.
// Only effective when combined with WithCaching(true).
func WithCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.CacheSize = size
	}
}

// WithCache attaches an external expression cache.
// The evaluator will use this cache regardless of the Caching flag.
func WithCache(c *cache.Cache) EvalOption {
	return func(opts *EvalOptions) {
		opts.Cache = c
	}
}

// WithTimeout sets the evaluation timeout.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithMaxDepth sets the maximum recursion depth of the AST walk.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithDebug enables or disables per-node debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithTracing wraps each Eval call in an OpenTelemetry span using the
// global tracer provider.
func WithTracing(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Tracing = enabled
	}
}
