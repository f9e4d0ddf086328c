package mixin

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/mark3labs/swagger2mixin/internal/spec"
)

// DefaultTimeoutSeconds is used when the host client has no timeout_limit.
const DefaultTimeoutSeconds = 10

// Generator turns method descriptors into mixin source for one dialect.
// It never mutates the descriptors it is given.
type Generator struct {
	dialect        Dialect
	logger         *log.Logger
	defaultTimeout int
	identityHeader string
	corrections    []Correction
}

// Option configures a Generator.
type Option func(*Generator)

func WithLogger(l *log.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithDefaultTimeout sets the fallback timeout in seconds.
func WithDefaultTimeout(seconds int) Option {
	return func(g *Generator) {
		if seconds > 0 {
			g.defaultTimeout = seconds
		}
	}
}

func WithClientIdentityHeader(name string) Option {
	return func(g *Generator) {
		if name != "" {
			g.identityHeader = name
		}
	}
}

func WithCorrections(c ...Correction) Option {
	return func(g *Generator) { g.corrections = append(g.corrections, c...) }
}

func New(d Dialect, opts ...Option) *Generator {
	g := &Generator{
		dialect:        d,
		logger:         log.New(io.Discard),
		defaultTimeout: DefaultTimeoutSeconds,
		identityHeader: ClientIdentityHeader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Dialect() Dialect { return g.dialect }

// Bind runs classification, corrections, URI resolution and doc comment
// construction for one descriptor. Errors are *MethodError.
func (g *Generator) Bind(m spec.MethodDescriptor) (*Binding, error) {
	if err := ValidateDescriptor(m); err != nil {
		return nil, methodError(m.Name, CodeInvalidDescriptor, err)
	}

	classifier := Classifier{
		IdentityHeader: g.identityHeader,
		IncludeSlot:    g.dialect.IncludeSlot(),
		Namer:          g.dialect.ParamName,
	}
	params, err := classifier.Classify(m.Params)
	if err != nil {
		return nil, methodError(m.Name, CodeClassification, err)
	}
	applyCorrections(g.corrections, m.Name, &params)

	uri, err := ResolveURI(m.URI, params.Positional)
	if err != nil {
		return nil, methodError(m.Name, CodeURI, err)
	}

	return &Binding{
		Method:         m,
		FuncName:       g.dialect.FuncName(m.Name),
		Params:         params,
		URI:            uri,
		Doc:            BuildDocComment(m, params, g.dialect.IncludeSlot(), g.dialect.TypeName),
		IncludeSlot:    g.dialect.IncludeSlot(),
		DefaultTimeout: g.defaultTimeout,
	}, nil
}

// RenderMethod renders a single method.
func (g *Generator) RenderMethod(m spec.MethodDescriptor) (string, error) {
	b, err := g.Bind(m)
	if err != nil {
		return "", err
	}
	out, err := g.dialect.RenderMethod(b)
	if err != nil {
		return "", methodError(m.Name, CodeRender, err)
	}
	return out, nil
}

// Render renders methods in input order into one module. Every failing
// method is reported; nothing is returned unless all succeed.
func (g *Generator) Render(mod Module, methods []spec.MethodDescriptor) ([]byte, error) {
	var errs []error
	rendered := make([]string, 0, len(methods))
	owners := make(map[string]string, len(methods))
	for _, m := range methods {
		text, err := g.RenderMethod(m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fn := g.dialect.FuncName(m.Name)
		if prev, ok := owners[fn]; ok {
			errs = append(errs, methodError(m.Name, CodeDuplicateMethod,
				fmt.Errorf("%w %q, also produced by %s", ErrDuplicateMethod, fn, prev)))
			continue
		}
		owners[fn] = m.Name
		rendered = append(rendered, text)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	mod.Methods = rendered
	out, err := g.dialect.RenderModule(&mod)
	if err != nil {
		return nil, fmt.Errorf("render module %s: %w", mod.Name, err)
	}
	g.logger.Debug("rendered module", "dialect", g.dialect.Name(), "module", mod.Name, "methods", len(rendered), "bytes", len(out))
	return out, nil
}
