// Package goemitter renders mixin methods as Go methods on a host client
// type. Method bodies are built with jennifer and formatted with
// golang.org/x/tools/imports.
package goemitter

import (
	"bytes"
	"embed"
	"fmt"
	"go/token"
	"strings"
	"text/template"

	"github.com/dave/jennifer/jen"
	"github.com/stoewer/go-strcase"
	"golang.org/x/tools/imports"

	"github.com/mark3labs/swagger2mixin/internal/mixin"
	"github.com/mark3labs/swagger2mixin/internal/spec"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("go").ParseFS(templateFS, "templates/*.tmpl"))

const (
	receiverVar = "c"
	docWidth    = 74
)

// reserved identifiers used inside generated bodies.
var reserved = map[string]bool{
	receiverVar: true, "timeout": true, "fmt": true, "time": true, "http": true,
	"any": true, "error": true, "nil": true, "string": true, "int": true, "bool": true,
}

// Dialect is the Go rendering of mixin methods.
type Dialect struct {
	pkg      string
	receiver string
}

var _ mixin.Dialect = (*Dialect)(nil)

type Option func(*Dialect)

// WithPackage sets the package clause of rendered modules.
func WithPackage(name string) Option {
	return func(d *Dialect) {
		if name = strings.TrimSpace(name); name != "" {
			d.pkg = name
		}
	}
}

// WithReceiver sets the host type the methods are declared on.
func WithReceiver(name string) Option {
	return func(d *Dialect) {
		if name = strings.TrimSpace(name); name != "" {
			d.receiver = strings.TrimPrefix(name, "*")
		}
	}
}

func New(opts ...Option) *Dialect {
	d := &Dialect{pkg: "client", receiver: "Client"}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dialect) Name() string        { return "go" }
func (d *Dialect) Extension() string   { return "go" }
func (d *Dialect) IncludeSlot() string { return mixin.DefaultIncludeSlot }

func (d *Dialect) FuncName(method string) string {
	name := strcase.UpperCamelCase(method)
	if name == "" || !token.IsIdentifier(name) {
		return "X" + name
	}
	return name
}

func (d *Dialect) ParamName(clean string) string {
	name := strcase.LowerCamelCase(clean)
	if name == "" {
		return "_"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "p" + name
	}
	if token.IsKeyword(name) || reserved[name] || name == d.IncludeSlot() {
		return name + "_"
	}
	return name
}

// TypeName renders the Go type used for a semantic label.
func (d *Dialect) TypeName(semantic string) string {
	if strings.TrimSpace(semantic) == "" {
		return ""
	}
	return fmt.Sprintf("%#v", goType(semantic))
}

// goType maps semantic labels onto Go types. Models are not generated, so
// they travel as any.
func goType(semantic string) *jen.Statement {
	semantic = strings.TrimSuffix(strings.TrimSpace(semantic), "?")
	switch semantic {
	case spec.TypeByte:
		return jen.Byte()
	case spec.TypeInt16:
		return jen.Int16()
	case spec.TypeInt32:
		return jen.Int32()
	case spec.TypeInt64:
		return jen.Int64()
	case spec.TypeDecimal, spec.TypeDouble:
		return jen.Float64()
	case spec.TypeBoolean:
		return jen.Bool()
	case spec.TypeDateTime:
		return jen.Qual("time", "Time")
	case spec.TypeString:
		return jen.String()
	case spec.TypeBytes:
		return jen.Index().Byte()
	case spec.TypeDictionary:
		return jen.Map(jen.String()).String()
	}
	if strings.HasPrefix(semantic, "List<") && strings.HasSuffix(semantic, ">") {
		return jen.Index().Add(goType(semantic[len("List<") : len(semantic)-1]))
	}
	return jen.Id("any")
}

func (d *Dialect) RenderMethod(b *mixin.Binding) (string, error) {
	params := make([]jen.Code, 0, len(b.Params.Positional)+1)
	for _, p := range b.Params.Positional {
		params = append(params, jen.Id(p.Ident).Add(goType(p.Source.TypeName)))
	}
	opts := jen.Dict{
		jen.Id("Auth"):    jen.Id(receiverVar).Dot("Auth"),
		jen.Id("Headers"): jen.Id(receiverVar).Dot("ClientHeader"),
		jen.Id("Timeout"): jen.Id("timeout"),
	}
	if b.Params.HasQuery() {
		params = append(params, jen.Id(b.IncludeSlot).Map(jen.String()).String())
		opts[jen.Id("Params")] = jen.Id(b.IncludeSlot)
	}
	if b.Params.Body != nil {
		opts[jen.Id("JSON")] = jen.Id(b.Params.Body.Ident)
	}

	fn := jen.Func().
		Params(jen.Id(receiverVar).Op("*").Id(d.receiver)).
		Id(b.FuncName).
		Params(params...).
		Params(jen.Op("*").Qual("net/http", "Response"), jen.Error()).
		Block(
			jen.Id("timeout").Op(":=").Lit(b.DefaultTimeout).Op("*").Qual("time", "Second"),
			jen.If(jen.Id(receiverVar).Dot("TimeoutLimit").Op(">").Lit(0)).Block(
				jen.Id("timeout").Op("=").Id(receiverVar).Dot("TimeoutLimit"),
			),
			jen.Return(jen.Id(receiverVar).Dot(b.Verb()).Call(
				urlExpr(b.URI),
				jen.Id("RequestOptions").Values(opts),
			)),
		)

	var out strings.Builder
	for _, line := range d.docLines(b) {
		if line == "" {
			out.WriteString("//\n")
			continue
		}
		out.WriteString("// " + line + "\n")
	}
	out.WriteString(fmt.Sprintf("%#v", fn))
	return out.String(), nil
}

// urlExpr concatenates the base URL and a literal path, or formats the
// path arguments in template order.
func urlExpr(uri mixin.ResolvedURI) *jen.Statement {
	base := jen.Id(receiverVar).Dot("BaseURL")
	if len(uri.Args) == 0 {
		return base.Op("+").Lit(strings.Join(uri.Literals, ""))
	}
	var format strings.Builder
	format.WriteString("%s")
	args := []jen.Code{base}
	for i, lit := range uri.Literals {
		format.WriteString(strings.ReplaceAll(lit, "%", "%%"))
		if i < len(uri.Args) {
			format.WriteString("%v")
			args = append(args, jen.Id(uri.Args[i].Ident))
		}
	}
	return jen.Qual("fmt", "Sprintf").Call(append([]jen.Code{jen.Lit(format.String())}, args...)...)
}

func (d *Dialect) docLines(b *mixin.Binding) []string {
	doc := b.Doc
	lines := []string{fmt.Sprintf("%s calls %s %s.", b.FuncName, strings.ToUpper(b.Verb()), b.URI.Template), ""}
	lines = append(lines, mixin.Wrap(sentence(doc.Summary), docWidth)...)
	if desc := mixin.Wrap(doc.Description, docWidth); len(desc) > 0 {
		lines = append(lines, "")
		lines = append(lines, desc...)
	}
	if len(doc.Params) > 0 {
		lines = append(lines, "", "Parameters:")
		for _, p := range doc.Params {
			lines = append(lines, paramLines("  - ", p)...)
			for _, f := range p.Fields {
				lines = append(lines, paramLines("      - ", f)...)
			}
		}
	}
	if label := strings.TrimSpace(b.Method.ResponseTypeName); label != "" {
		returns := label
		if doc.Returns != "" && doc.Returns != label {
			returns += " (" + doc.Returns + ")"
		}
		lines = append(lines, "", "The response body holds "+returns+".")
	}
	return lines
}

// sentence terminates s so gofmt does not read a lone line as a heading.
func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s[len(s)-1:], ".!?:") {
		return s
	}
	return s + "."
}

func paramLines(prefix string, p mixin.DocParam) []string {
	head := prefix + p.Name
	if p.Type != "" {
		head += " (" + p.Type + ")"
	}
	indent := strings.Repeat(" ", len(prefix))
	wrapped := mixin.Wrap(p.Description, docWidth-len(indent))
	if len(wrapped) == 0 {
		return []string{head}
	}
	out := []string{head + ": " + wrapped[0]}
	for _, l := range wrapped[1:] {
		out = append(out, indent+l)
	}
	return out
}

type moduleView struct {
	Title      string
	ApiVersion string
	Category   string
	Package    string
	Receiver   string
	Imports    []string
	Methods    []string
}

// RenderModule assembles the file and formats it. Imports are derived from
// the qualified identifiers the methods use.
func (d *Dialect) RenderModule(m *mixin.Module) ([]byte, error) {
	view := moduleView{
		Title:      m.Title,
		ApiVersion: m.ApiVersion,
		Category:   m.Category,
		Package:    d.pkg,
		Receiver:   d.receiver,
		Methods:    m.Methods,
	}
	if view.Title == "" {
		view.Title = "API"
	}
	body := codeOnly(m.Methods)
	for _, imp := range []struct{ path, ref string }{
		{"fmt", "fmt.Sprintf("},
		{"net/http", "http."},
		{"time", "time."},
	} {
		if strings.Contains(body, imp.ref) {
			view.Imports = append(view.Imports, imp.path)
		}
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "module.go.tmpl", view); err != nil {
		return nil, fmt.Errorf("goemitter: %w", err)
	}
	out, err := imports.Process(d.pkg+".go", buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("goemitter: format: %w", err)
	}
	return out, nil
}

// codeOnly joins the methods without their comment lines.
func codeOnly(methods []string) string {
	var b strings.Builder
	for _, m := range methods {
		for _, line := range strings.Split(m, "\n") {
			if !strings.HasPrefix(strings.TrimSpace(line), "//") {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}
