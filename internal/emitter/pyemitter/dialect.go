// Package pyemitter renders mixin methods as a Python class built on the
// requests library.
package pyemitter

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/stoewer/go-strcase"

	"github.com/mark3labs/swagger2mixin/internal/mixin"
	"github.com/mark3labs/swagger2mixin/internal/spec"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("python").ParseFS(templateFS, "templates/*.tmpl"))

const docWidth = 72

// reserved holds Python keywords and builtins that generated identifiers
// must not shadow.
var reserved = map[string]bool{
	"and": true, "as": true, "assert": true, "async": true, "await": true, "break": true,
	"class": true, "continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true, "if": true,
	"import": true, "in": true, "is": true, "lambda": true, "nonlocal": true, "not": true,
	"or": true, "pass": true, "raise": true, "return": true, "try": true, "while": true,
	"with": true, "yield": true, "none": true, "true": true, "false": true,
	"id": true, "type": true, "filter": true, "format": true, "hash": true, "input": true,
	"list": true, "dict": true, "object": true, "range": true, "set": true, "str": true,
	"int": true, "float": true, "bytes": true, "len": true, "max": true, "min": true,
	"self": true, "requests": true,
}

var typeNames = map[string]string{
	spec.TypeByte:       "int",
	spec.TypeInt16:      "int",
	spec.TypeInt32:      "int",
	spec.TypeInt64:      "int",
	spec.TypeDecimal:    "decimal",
	spec.TypeDouble:     "float",
	spec.TypeBoolean:    "bool",
	spec.TypeDateTime:   "datetime",
	spec.TypeString:     "string",
	spec.TypeBytes:      "bytes",
	spec.TypeFileResult: "file",
	spec.TypeDictionary: "dict",
}

// Dialect is the Python rendering of mixin methods.
type Dialect struct{}

var _ mixin.Dialect = Dialect{}

func New() Dialect { return Dialect{} }

func (Dialect) Name() string        { return "python" }
func (Dialect) Extension() string   { return "py" }
func (Dialect) IncludeSlot() string { return mixin.DefaultIncludeSlot }

func (Dialect) FuncName(method string) string {
	return safeIdent(strcase.SnakeCase(method))
}

func (Dialect) ParamName(clean string) string {
	name := safeIdent(strcase.SnakeCase(clean))
	if name == mixin.DefaultIncludeSlot {
		return name + "_"
	}
	return name
}

func safeIdent(name string) string {
	if name == "" {
		return "_"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	if reserved[strings.ToLower(name)] {
		return name + "_"
	}
	return name
}

// TypeName maps a semantic label; generic labels such as List<Int32>
// become List[int].
func (d Dialect) TypeName(semantic string) string {
	semantic = strings.TrimSuffix(strings.TrimSpace(semantic), "?")
	if semantic == "" {
		return ""
	}
	if t, ok := typeNames[semantic]; ok {
		return t
	}
	if open := strings.Index(semantic, "<"); open > 0 && strings.HasSuffix(semantic, ">") {
		return semantic[:open] + "[" + d.TypeName(semantic[open+1:len(semantic)-1]) + "]"
	}
	return semantic
}

type methodView struct {
	Func    string
	Args    string
	Doc     []string
	Verb    string
	URL     string
	Include string
	Body    string
	Timeout int
}

func (d Dialect) RenderMethod(b *mixin.Binding) (string, error) {
	args := []string{"self"}
	for _, p := range b.Params.Positional {
		args = append(args, p.Ident)
	}
	view := methodView{
		Func:    b.FuncName,
		Doc:     docLines(b.Doc),
		Verb:    b.Verb(),
		URL:     urlExpr(b.URI),
		Timeout: b.DefaultTimeout,
	}
	if b.Params.HasQuery() {
		args = append(args, b.IncludeSlot+"=None")
		view.Include = b.IncludeSlot
	}
	if b.Params.Body != nil {
		view.Body = b.Params.Body.Ident
	}
	view.Args = strings.Join(args, ", ")

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "method.py.tmpl", view); err != nil {
		return "", fmt.Errorf("pyemitter: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

type moduleView struct {
	Title      string
	ApiVersion string
	Category   string
	ClassName  string
	Methods    []string
}

func (d Dialect) RenderModule(m *mixin.Module) ([]byte, error) {
	view := moduleView{
		Title:      m.Title,
		ApiVersion: m.ApiVersion,
		Category:   m.Category,
		ClassName:  "Mixin",
		Methods:    m.Methods,
	}
	if m.Category != "" {
		view.ClassName = strcase.UpperCamelCase(m.Category) + "Mixin"
	}
	if view.Title == "" {
		view.Title = "API"
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "module.py.tmpl", view); err != nil {
		return nil, fmt.Errorf("pyemitter: %w", err)
	}
	return buf.Bytes(), nil
}

// urlExpr renders '{}/path/{}'.format(self.base_url, a).
func urlExpr(uri mixin.ResolvedURI) string {
	var pattern strings.Builder
	pattern.WriteString("{}")
	args := []string{"self.base_url"}
	for i, lit := range uri.Literals {
		pattern.WriteString(escapeFormatLiteral(lit))
		if i < len(uri.Args) {
			pattern.WriteString("{}")
			args = append(args, uri.Args[i].Ident)
		}
	}
	return "'" + pattern.String() + "'.format(" + strings.Join(args, ", ") + ")"
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "{", "{{", "}", "}}")

func escapeFormatLiteral(s string) string { return literalEscaper.Replace(s) }

// Every quote is escaped so no run of them can close the raw docstring.
var docEscaper = strings.NewReplacer(`"`, `\"`)

func docLines(doc mixin.DocComment) []string {
	var lines []string
	lines = append(lines, mixin.Wrap(docEscaper.Replace(doc.Summary), docWidth)...)
	if desc := mixin.Wrap(docEscaper.Replace(doc.Description), docWidth); len(desc) > 0 {
		lines = append(lines, "")
		lines = append(lines, desc...)
	}
	if len(doc.Params) > 0 || doc.Returns != "" {
		lines = append(lines, "")
	}
	for _, p := range doc.Params {
		lines = append(lines, paramLines(":param ", "  ", p)...)
		for _, f := range p.Fields {
			lines = append(lines, paramLines("    ", "      ", f)...)
		}
	}
	if doc.Returns != "" {
		lines = append(lines, ":return "+doc.Returns)
	}
	return lines
}

func paramLines(prefix, indent string, p mixin.DocParam) []string {
	head := prefix + p.Name
	if p.Type != "" {
		head += " [" + p.Type + "]"
	}
	wrapped := mixin.Wrap(docEscaper.Replace(p.Description), docWidth-len(indent))
	if len(wrapped) == 0 {
		return []string{head}
	}
	out := []string{head + " " + wrapped[0]}
	for _, l := range wrapped[1:] {
		out = append(out, indent+l)
	}
	return out
}
