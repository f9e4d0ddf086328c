package mixin

import (
	"fmt"
	"strings"

	"github.com/mark3labs/swagger2mixin/internal/spec"
)

// ClientIdentityHeader is supplied by the host client and never exposed.
const ClientIdentityHeader = "X-Avalara-Client"

// DefaultIncludeSlot names the optional argument that carries query parameters.
const DefaultIncludeSlot = "include"

// Param is a descriptor parameter together with its identifier in the
// generated code.
type Param struct {
	Ident  string
	Source spec.ParamDescriptor
}

// Classification partitions a method's parameters.
type Classification struct {
	// Positional holds UriPath and RequestBody parameters in descriptor order.
	Positional []Param
	// Query holds the QueryString parameters folded into the include slot.
	Query []Param
	Body  *Param
}

// HasQuery reports whether the include slot is exposed.
func (c Classification) HasQuery() bool { return len(c.Query) > 0 }

// Classifier holds the naming context a classification depends on.
type Classifier struct {
	IdentityHeader string
	IncludeSlot    string
	// Namer turns a clean parameter name into an identifier.
	Namer func(string) string
}

// Classify uses the default identity header and include slot and keeps
// clean names as identifiers.
func Classify(params []spec.ParamDescriptor) (Classification, error) {
	return Classifier{}.Classify(params)
}

func (c Classifier) Classify(params []spec.ParamDescriptor) (Classification, error) {
	identity := c.IdentityHeader
	if identity == "" {
		identity = ClientIdentityHeader
	}
	slot := c.IncludeSlot
	if slot == "" {
		slot = DefaultIncludeSlot
	}
	namer := c.Namer
	if namer == nil {
		namer = func(s string) string { return s }
	}

	var out Classification
	seen := make(map[string]string)
	claim := func(ident, raw string) error {
		if prev, ok := seen[ident]; ok {
			return fmt.Errorf("%w: %q and %q both become %q", ErrDuplicateParam, prev, raw, ident)
		}
		seen[ident] = raw
		return nil
	}

	for _, p := range params {
		if strings.EqualFold(strings.TrimSpace(p.Name), identity) {
			continue
		}
		switch p.Location {
		case spec.LocationHeader:
			// headers come from the host client
		case spec.LocationQueryString:
			out.Query = append(out.Query, Param{Ident: p.Identifier(), Source: p})
		case spec.LocationUriPath, spec.LocationRequestBody:
			param := Param{Ident: namer(p.Identifier()), Source: p}
			if err := claim(param.Ident, p.Name); err != nil {
				return Classification{}, err
			}
			if p.Location == spec.LocationRequestBody {
				if out.Body != nil {
					return Classification{}, fmt.Errorf("%w: %q and %q", ErrMultipleBodies, out.Body.Source.Name, p.Name)
				}
				body := param
				out.Body = &body
			}
			out.Positional = append(out.Positional, param)
		default:
			return Classification{}, fmt.Errorf("%w %q on parameter %q", ErrUnknownLocation, p.Location, p.Name)
		}
	}

	if out.HasQuery() {
		if err := claim(slot, "query parameters"); err != nil {
			return Classification{}, err
		}
	}
	return out, nil
}
