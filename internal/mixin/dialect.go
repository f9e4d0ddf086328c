package mixin

import "github.com/mark3labs/swagger2mixin/internal/spec"

// Dialect renders bindings in one target language.
type Dialect interface {
	// Name identifies the dialect, e.g. "python".
	Name() string
	// Extension is the file extension of rendered modules, without the dot.
	Extension() string
	// FuncName converts a source-cased method name.
	FuncName(method string) string
	// ParamName converts a clean parameter name into a safe identifier.
	ParamName(clean string) string
	// IncludeSlot names the optional query argument.
	IncludeSlot() string
	// TypeName maps a semantic type label for documentation.
	TypeName(semantic string) string
	RenderMethod(b *Binding) (string, error)
	RenderModule(m *Module) ([]byte, error)
}

// Binding is everything a dialect needs to render one method.
type Binding struct {
	Method         spec.MethodDescriptor
	FuncName       string
	Params         Classification
	URI            ResolvedURI
	Doc            DocComment
	IncludeSlot    string
	DefaultTimeout int
}

// Verb is the lower-cased HTTP verb naming the request function.
func (b *Binding) Verb() string {
	if m, ok := spec.ParseHttpMethod(string(b.Method.HttpVerb)); ok {
		return string(m)
	}
	return string(b.Method.HttpVerb)
}

// Module is one output file.
type Module struct {
	Name       string
	Title      string
	ApiVersion string
	Category   string
	Methods    []string
}
