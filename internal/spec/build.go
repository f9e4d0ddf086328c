package spec

import (
    "fmt"
    "io"
    "regexp"
    "sort"
    "strings"

    "github.com/charmbracelet/log"
    "github.com/getkin/kin-openapi/openapi3"
    "github.com/stoewer/go-strcase"
    "gopkg.in/yaml.v3"
)

// BodyParamName is the name every request body parameter receives.
const BodyParamName = "model"

// BuildOption configures how the ApiModel is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
    includeTags map[string]struct{}
    excludeTags map[string]struct{}
    methods     map[HttpMethod]struct{}
    pathRes     []*regexp.Regexp
    errs        []error
    logger      *log.Logger
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
    return func(c *buildConfig) {
        c.includeTags = addTags(c.includeTags, tags)
    }
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
    return func(c *buildConfig) {
        c.excludeTags = addTags(c.excludeTags, tags)
    }
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
    for _, t := range tags {
        t = strings.TrimSpace(t)
        if t == "" {
            continue
        }
        if set == nil {
            set = make(map[string]struct{}, len(tags))
        }
        set[t] = struct{}{}
    }
    return set
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
    return func(c *buildConfig) {
        for _, m := range methods {
            if c.methods == nil {
                c.methods = make(map[HttpMethod]struct{}, len(methods))
            }
            c.methods[m] = struct{}{}
        }
    }
}

// WithPathPatterns keeps only operations whose path matches at least one of
// the given regular expressions. An invalid pattern fails the build.
func WithPathPatterns(patterns []string) BuildOption {
    return func(c *buildConfig) {
        for _, p := range patterns {
            p = strings.TrimSpace(p)
            if p == "" {
                continue
            }
            re, err := regexp.Compile(p)
            if err != nil {
                c.errs = append(c.errs, fmt.Errorf("invalid path pattern %q: %w", p, err))
                continue
            }
            c.pathRes = append(c.pathRes, re)
        }
    }
}

func WithBuildLogger(l *log.Logger) BuildOption {
    return func(c *buildConfig) {
        if l != nil {
            c.logger = l
        }
    }
}

func newBuildConfig(opts []BuildOption) (*buildConfig, error) {
    cfg := &buildConfig{logger: log.New(io.Discard)}
    for _, opt := range opts {
        opt(cfg)
    }
    if len(cfg.errs) > 0 {
        return nil, cfg.errs[0]
    }
    return cfg, nil
}

func (c *buildConfig) allow(method HttpMethod, path string, tags []string) bool {
    if len(c.methods) > 0 {
        if _, ok := c.methods[method]; !ok {
            return false
        }
    }
    if len(c.pathRes) > 0 {
        matched := false
        for _, re := range c.pathRes {
            if re.MatchString(path) {
                matched = true
                break
            }
        }
        if !matched {
            return false
        }
    }
    if len(c.includeTags) > 0 {
        ok := false
        for _, t := range tags {
            if _, yes := c.includeTags[t]; yes {
                ok = true
                break
            }
        }
        if !ok {
            return false
        }
    }
    for _, t := range tags {
        if _, blocked := c.excludeTags[t]; blocked {
            return false
        }
    }
    return true
}

// BuildModel converts an OpenAPI v3 document into method descriptors.
// Paths are visited in sorted order and the result is ordered by category,
// then name.
func BuildModel(doc *openapi3.T, opts ...BuildOption) (*ApiModel, error) {
    if doc == nil {
        return nil, fmt.Errorf("nil document")
    }
    cfg, err := newBuildConfig(opts)
    if err != nil {
        return nil, err
    }

    model := &ApiModel{}
    if doc.Info != nil {
        model.Title = safeStr(doc.Info.Title)
        model.ApiVersion = safeStr(doc.Info.Version)
    }

    pathKeys := make([]string, 0, len(doc.Paths))
    for p := range doc.Paths {
        pathKeys = append(pathKeys, p)
    }
    sort.Strings(pathKeys)

    for _, p := range pathKeys {
        item := doc.Paths[p]
        if item == nil {
            continue
        }
        for _, m := range AllMethods {
            op := item.GetOperation(strings.ToUpper(string(m)))
            if op == nil {
                continue
            }
            tags := trimmedTags(op.Tags)
            if !cfg.allow(m, p, tags) {
                continue
            }
            model.Methods = append(model.Methods, buildMethod(cfg, p, m, item, op, tags))
        }
    }

    sortMethods(model.Methods)
    model.Categories = collectCategories(model.Methods)
    return model, nil
}

func buildMethod(cfg *buildConfig, path string, verb HttpMethod, item *openapi3.PathItem, op *openapi3.Operation, tags []string) MethodDescriptor {
    md := MethodDescriptor{
        Name:        safeStr(op.OperationID),
        HttpVerb:    verb,
        URI:         path,
        Summary:     safeStr(op.Summary),
        Description: safeStr(op.Description),
    }
    if md.Name == "" {
        md.Name = deriveMethodName(verb, path)
        cfg.logger.Debug("operation has no operationId", "method", string(verb), "path", path, "name", md.Name)
    }
    if len(tags) > 0 {
        md.Category = tags[0]
    }

    for _, pref := range mergeParameters(item.Parameters, op.Parameters) {
        p := pref.Value
        pd := ParamDescriptor{
            Name:        safeStr(p.Name),
            CleanName:   CleanParamName(p.Name),
            TypeName:    ResolveTypeName(p.Schema, p.Required),
            Description: safeStr(p.Description),
            Required:    p.Required,
        }
        switch strings.ToLower(p.In) {
        case openapi3.ParameterInPath:
            pd.Location = LocationUriPath
        case openapi3.ParameterInQuery:
            pd.Location = LocationQueryString
        case openapi3.ParameterInHeader:
            pd.Location = LocationHeader
        case openapi3.ParameterInCookie:
            cfg.logger.Warn("skipping cookie parameter", "operation", md.Name, "param", pd.Name)
            continue
        default:
            pd.Location = ParameterLocation(p.In)
        }
        md.Params = append(md.Params, pd)
    }

    if op.RequestBody != nil && op.RequestBody.Value != nil {
        rb := op.RequestBody.Value
        md.Params = append(md.Params, ParamDescriptor{
            Name:        BodyParamName,
            CleanName:   BodyParamName,
            TypeName:    ResolveTypeName(pickSchema(rb.Content), true),
            Description: safeStr(rb.Description),
            Location:    LocationRequestBody,
            Required:    rb.Required,
        })
    }

    md.ResponseTypeName = responseTypeName(op.Responses)
    return md
}

// mergeParameters returns path-level parameters followed by operation-level
// ones. An operation-level parameter replaces the path-level parameter with
// the same location and name in place.
func mergeParameters(pathLevel, opLevel openapi3.Parameters) []*openapi3.ParameterRef {
    out := make([]*openapi3.ParameterRef, 0, len(pathLevel)+len(opLevel))
    index := make(map[string]int, len(pathLevel)+len(opLevel))
    add := func(pref *openapi3.ParameterRef) {
        if pref == nil || pref.Value == nil {
            return
        }
        key := paramKey(pref.Value.In, pref.Value.Name)
        if i, ok := index[key]; ok {
            out[i] = pref
            return
        }
        index[key] = len(out)
        out = append(out, pref)
    }
    for _, pref := range pathLevel {
        add(pref)
    }
    for _, pref := range opLevel {
        add(pref)
    }
    return out
}

// responseTypeName uses the 200 response, else the 201 response.
func responseTypeName(responses openapi3.Responses) string {
    for _, code := range []string{"200", "201"} {
        rref, ok := responses[code]
        if !ok || rref == nil || rref.Value == nil {
            continue
        }
        return ResolveTypeName(pickSchema(rref.Value.Content), true)
    }
    return ""
}

// pickSchema prefers a JSON media type, else the first one in sorted order.
func pickSchema(content openapi3.Content) *openapi3.SchemaRef {
    if len(content) == 0 {
        return nil
    }
    if mt := content.Get("application/json"); mt != nil {
        return mt.Schema
    }
    keys := make([]string, 0, len(content))
    for k := range content {
        keys = append(keys, k)
    }
    sort.Strings(keys)
    for _, k := range keys {
        if mt := content[k]; mt != nil && strings.Contains(k, "json") {
            return mt.Schema
        }
    }
    if mt := content[keys[0]]; mt != nil {
        return mt.Schema
    }
    return nil
}

var placeholderRe = regexp.MustCompile(`\{[^{}]*\}`)

// deriveMethodName builds a name such as "GetAccountsUsers" from the verb
// and the literal path segments.
func deriveMethodName(verb HttpMethod, path string) string {
    literal := placeholderRe.ReplaceAllString(path, " ")
    literal = strings.NewReplacer("/", " ", "-", " ", ".", " ").Replace(literal)
    return strcase.UpperCamelCase(string(verb) + " " + strings.Join(strings.Fields(literal), " "))
}

// decodeDescriptors reads a descriptor document and fills derived fields.
func decodeDescriptors(raw []byte, opts ...BuildOption) (*ApiModel, error) {
    cfg, err := newBuildConfig(opts)
    if err != nil {
        return nil, err
    }
    var doc ApiModel
    if err := yaml.Unmarshal(raw, &doc); err != nil {
        return nil, err
    }
    model := &ApiModel{Title: doc.Title, ApiVersion: doc.ApiVersion}
    for _, md := range doc.Methods {
        if verb, ok := ParseHttpMethod(string(md.HttpVerb)); ok {
            md.HttpVerb = verb
        }
        var tags []string
        if md.Category != "" {
            tags = []string{md.Category}
        }
        if !cfg.allow(md.HttpVerb, md.URI, tags) {
            continue
        }
        for i := range md.Params {
            if md.Params[i].CleanName == "" {
                md.Params[i].CleanName = CleanParamName(md.Params[i].Name)
            }
        }
        model.Methods = append(model.Methods, md)
    }
    model.Categories = collectCategories(model.Methods)
    return model, nil
}

func sortMethods(methods []MethodDescriptor) {
    sort.SliceStable(methods, func(i, j int) bool {
        if methods[i].Category != methods[j].Category {
            return methods[i].Category < methods[j].Category
        }
        return methods[i].Name < methods[j].Name
    })
}

func collectCategories(methods []MethodDescriptor) []string {
    set := make(map[string]struct{})
    for _, m := range methods {
        if m.Category != "" {
            set[m.Category] = struct{}{}
        }
    }
    if len(set) == 0 {
        return nil
    }
    out := make([]string, 0, len(set))
    for c := range set {
        out = append(out, c)
    }
    sort.Strings(out)
    return out
}

func trimmedTags(in []string) []string {
    tags := make([]string, 0, len(in))
    for _, t := range in {
        if t = strings.TrimSpace(t); t != "" {
            tags = append(tags, t)
        }
    }
    return tags
}

func paramKey(in, name string) string { return in + ":" + name }

func safeStr(s string) string { return strings.TrimSpace(s) }
