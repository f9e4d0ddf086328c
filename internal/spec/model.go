package spec

import "strings"

// Descriptor model consumed by the mixin generator and its dialects.

type HttpMethod string

const (
    GET     HttpMethod = "get"
    POST    HttpMethod = "post"
    PUT     HttpMethod = "put"
    DELETE  HttpMethod = "delete"
    PATCH   HttpMethod = "patch"
    HEAD    HttpMethod = "head"
    OPTIONS HttpMethod = "options"
    TRACE   HttpMethod = "trace"
)

// AllMethods lists the supported verbs in the order operations are visited.
var AllMethods = []HttpMethod{GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS, TRACE}

// ParseHttpMethod matches s case-insensitively against the supported verbs.
func ParseHttpMethod(s string) (HttpMethod, bool) {
    want := HttpMethod(strings.ToLower(strings.TrimSpace(s)))
    for _, m := range AllMethods {
        if m == want {
            return m, true
        }
    }
    return "", false
}

// ParameterLocation says where a parameter travels in the HTTP request.
type ParameterLocation string

const (
    LocationHeader      ParameterLocation = "Header"
    LocationUriPath     ParameterLocation = "UriPath"
    LocationQueryString ParameterLocation = "QueryString"
    LocationRequestBody ParameterLocation = "RequestBody"
)

type ApiModel struct {
    Title      string             `json:"title,omitempty" yaml:"title,omitempty"`
    ApiVersion string             `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
    Methods    []MethodDescriptor `json:"methods" yaml:"methods"`
    // Categories holds the distinct method categories in sorted order.
    Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// MethodDescriptor describes one API operation.
type MethodDescriptor struct {
    Name             string            `json:"name" yaml:"name" validate:"required"`
    HttpVerb         HttpMethod        `json:"httpVerb" yaml:"httpVerb" validate:"required,httpverb"`
    URI              string            `json:"uri" yaml:"uri" validate:"required,startswith=/"`
    Summary          string            `json:"summary,omitempty" yaml:"summary,omitempty"`
    Description      string            `json:"description,omitempty" yaml:"description,omitempty"`
    Category         string            `json:"category,omitempty" yaml:"category,omitempty"`
    ResponseTypeName string            `json:"responseTypeName,omitempty" yaml:"responseTypeName,omitempty"`
    Params           []ParamDescriptor `json:"params,omitempty" yaml:"params,omitempty" validate:"dive"`
}

// ParamDescriptor describes one parameter of a method.
type ParamDescriptor struct {
    // Name is the wire name, e.g. "$filter" or "X-Avalara-Client".
    Name        string            `json:"name" yaml:"name" validate:"required"`
    CleanName   string            `json:"cleanName,omitempty" yaml:"cleanName,omitempty"`
    TypeName    string            `json:"typeName,omitempty" yaml:"typeName,omitempty"`
    Description string            `json:"description,omitempty" yaml:"description,omitempty"`
    Location    ParameterLocation `json:"location" yaml:"location" validate:"required"`
    Required    bool              `json:"required,omitempty" yaml:"required,omitempty"`
}

// Identifier returns CleanName, falling back to Name with "$" removed.
func (p ParamDescriptor) Identifier() string {
    if p.CleanName != "" {
        return p.CleanName
    }
    return CleanParamName(p.Name)
}

// CleanParamName strips characters that never survive into an identifier.
func CleanParamName(name string) string {
    return strings.ReplaceAll(strings.TrimSpace(name), "$", "")
}
