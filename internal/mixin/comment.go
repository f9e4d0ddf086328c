package mixin

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/gobuffalo/flect"

	"github.com/mark3labs/swagger2mixin/internal/spec"
)

// DocParam documents one exposed argument. Fields lists the query keys
// folded into the include slot.
type DocParam struct {
	Name        string
	Type        string
	Description string
	Fields      []DocParam
}

// DocComment is the dialect-neutral content of a method's doc block.
type DocComment struct {
	Summary     string
	Description string
	Params      []DocParam
	Returns     string
}

// BuildDocComment collects documentation for the exposed arguments, in
// signature order. typeName maps semantic type labels to the dialect's
// vocabulary.
func BuildDocComment(m spec.MethodDescriptor, c Classification, includeSlot string, typeName func(string) string) DocComment {
	doc := DocComment{
		Summary:     strings.TrimSpace(m.Summary),
		Description: strings.TrimSpace(m.Description),
		Returns:     typeName(m.ResponseTypeName),
	}
	if doc.Summary == "" {
		doc.Summary = flect.Humanize(m.Name)
	}
	if doc.Description == doc.Summary {
		doc.Description = ""
	}
	for _, p := range c.Positional {
		doc.Params = append(doc.Params, DocParam{
			Name:        p.Ident,
			Type:        typeName(p.Source.TypeName),
			Description: strings.TrimSpace(p.Source.Description),
		})
	}
	if c.HasQuery() {
		include := DocParam{Name: includeSlot, Type: typeName(includeType), Description: "Optional query string parameters"}
		for _, q := range c.Query {
			include.Fields = append(include.Fields, DocParam{
				Name:        q.Source.Name,
				Type:        typeName(q.Source.TypeName),
				Description: strings.TrimSpace(q.Source.Description),
			})
		}
		doc.Params = append(doc.Params, include)
	}
	return doc
}

// includeType is the semantic label of the include slot.
const includeType = spec.TypeDictionary

// Wrap word-wraps text to width columns and returns the lines. Blank input
// yields no lines.
func Wrap(text string, width int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if width <= 0 {
		return strings.Split(text, "\n")
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			out = append(out, "")
			continue
		}
		for _, line := range strings.Split(ansi.Wordwrap(para, width, ""), "\n") {
			out = append(out, strings.TrimRight(line, " "))
		}
	}
	return out
}
