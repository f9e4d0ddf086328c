package mixin

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mark3labs/swagger2mixin/internal/spec"
)

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// ResolvedURI is a path template split around its placeholders.
// Literals has one more entry than Args; the rendered URL is
// Literals[0] + Args[0] + Literals[1] + ... + Literals[n].
type ResolvedURI struct {
	Template string
	Literals []string
	Args     []Param
}

// Placeholders returns the number of substitution slots.
func (r ResolvedURI) Placeholders() int { return len(r.Args) }

// ResolveURI binds each {name} placeholder of template to a UriPath
// parameter from positional, in order of appearance in the template.
func ResolveURI(template string, positional []Param) (ResolvedURI, error) {
	out := ResolvedURI{Template: template}
	used := make(map[int]bool)

	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(template, -1) {
		name := template[loc[2]:loc[3]]
		idx := lookupPathParam(name, positional)
		if idx < 0 {
			return ResolvedURI{}, fmt.Errorf("%w: {%s} in %s", ErrUnboundPlaceholder, name, template)
		}
		used[idx] = true
		out.Literals = append(out.Literals, template[last:loc[0]])
		out.Args = append(out.Args, positional[idx])
		last = loc[1]
	}
	out.Literals = append(out.Literals, template[last:])

	for i, p := range positional {
		if p.Source.Location == spec.LocationUriPath && !used[i] {
			return ResolvedURI{}, fmt.Errorf("%w: %q not in %s", ErrMissingPlaceholder, p.Source.Name, template)
		}
	}
	return out, nil
}

// lookupPathParam matches by wire name, then clean name, then either one
// ignoring case.
func lookupPathParam(name string, positional []Param) int {
	match := func(eq func(a, b string) bool) int {
		for i, p := range positional {
			if p.Source.Location != spec.LocationUriPath {
				continue
			}
			if eq(p.Source.Name, name) || eq(p.Source.Identifier(), name) {
				return i
			}
		}
		return -1
	}
	if i := match(func(a, b string) bool { return a == b }); i >= 0 {
		return i
	}
	return match(strings.EqualFold)
}
