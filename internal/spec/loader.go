package spec

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "os"
    "path/filepath"
    "regexp"
    "strings"
    "time"

    "github.com/avast/retry-go"
    "github.com/charmbracelet/log"
    openapi2 "github.com/getkin/kin-openapi/openapi2"
    "github.com/getkin/kin-openapi/openapi2conv"
    "github.com/getkin/kin-openapi/openapi3"
    yamljson "github.com/invopop/yaml"
    "gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
    InputError      ErrorCode = "InputError"
    NetworkError    ErrorCode = "NetworkError"
    ParseError      ErrorCode = "ParseError"
    ValidationError ErrorCode = "ValidationError"
    ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
    Code        ErrorCode
    Message     string
    Location    string // file path or URL
    JSONPointer string // e.g. "#/paths/~1accounts/get"
    Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
    // HTTPTimeout bounds each HTTP request.
    HTTPTimeout time.Duration
    // MaxRetries for transient HTTP failures (>=500, 429, or network errors).
    MaxRetries int
    // BackoffBase is the base delay for exponential backoff.
    BackoffBase time.Duration
    // AllowFileRefs permits file:// external refs. Always allowed when the
    // root input is a local file.
    AllowFileRefs bool
    Logger        *log.Logger
    // Build is applied when LoadModel turns an OpenAPI document into an ApiModel.
    Build []BuildOption
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
    return Settings{
        HTTPTimeout:   10 * time.Second,
        MaxRetries:    3,
        BackoffBase:   200 * time.Millisecond,
        AllowFileRefs: false,
        Logger:        log.New(io.Discard),
    }
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option    { return func(s *Settings) { s.AllowFileRefs = allow } }

func WithLogger(l *log.Logger) Option {
    return func(s *Settings) {
        if l != nil {
            s.Logger = l
        }
    }
}

func WithBuildOptions(opts ...BuildOption) Option {
    return func(s *Settings) { s.Build = append(s.Build, opts...) }
}

type documentKind int

const (
    kindUnknown documentKind = iota
    kindSwagger2
    kindOpenAPI3
    kindDescriptors
)

// source is the raw input together with where it came from.
type source struct {
    raw      []byte
    location string
    base     *url.URL
    isFile   bool
}

// Load reads, validates, and returns an OpenAPI v3 document. Swagger 2.0
// input is converted to v3 via openapi2conv after a compatibility pass.
//
// input may be a filesystem path or an http/https URL. file:// URLs are
// blocked.
func Load(ctx context.Context, input string, opts ...Option) (*openapi3.T, error) {
    settings := resolveSettings(opts)
    src, err := readSource(ctx, input, settings)
    if err != nil {
        return nil, err
    }
    kind, err := detectDocumentKind(src.raw)
    if err != nil {
        return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: src.location, Cause: err}
    }
    if kind == kindDescriptors {
        return nil, &SpecError{Code: InputError, Message: "spec: input is a method descriptor document, not OpenAPI", Location: src.location}
    }
    return loadOpenAPI(ctx, src, kind, settings)
}

// LoadModel loads input into an ApiModel. It accepts Swagger 2.0, OpenAPI
// 3.x and descriptor documents (a top-level "methods" list).
func LoadModel(ctx context.Context, input string, opts ...Option) (*ApiModel, error) {
    settings := resolveSettings(opts)
    src, err := readSource(ctx, input, settings)
    if err != nil {
        return nil, err
    }
    kind, err := detectDocumentKind(src.raw)
    if err != nil {
        return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: src.location, Cause: err}
    }
    if kind == kindDescriptors {
        model, err := decodeDescriptors(src.raw, settings.Build...)
        if err != nil {
            return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("decode descriptors: %v", err), Location: src.location, Cause: err}
        }
        settings.Logger.Debug("loaded descriptor document", "location", src.location, "methods", len(model.Methods))
        return model, nil
    }
    doc, err := loadOpenAPI(ctx, src, kind, settings)
    if err != nil {
        return nil, err
    }
    build := append([]BuildOption{WithBuildLogger(settings.Logger)}, settings.Build...)
    model, err := BuildModel(doc, build...)
    if err != nil {
        return nil, &SpecError{Code: InputError, Message: err.Error(), Location: src.location, Cause: err}
    }
    return model, nil
}

func resolveSettings(opts []Option) Settings {
    settings := DefaultSettings()
    for _, opt := range opts {
        opt(&settings)
    }
    return settings
}

func readSource(ctx context.Context, input string, settings Settings) (*source, error) {
    if strings.TrimSpace(input) == "" {
        return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
    }

    u, uerr := url.Parse(input)
    if uerr == nil && u.Scheme != "" && u.Host != "" {
        scheme := strings.ToLower(u.Scheme)
        if scheme == "file" {
            return nil, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked by default", Location: input}
        }
        if scheme != "http" && scheme != "https" {
            return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
        }
        raw, err := fetchWithRetry(ctx, input, settings)
        if err != nil {
            return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
        }
        return &source{raw: raw, location: input, base: u}, nil
    }

    abs, err := filepath.Abs(input)
    if err != nil {
        return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
    }
    raw, err := os.ReadFile(abs)
    if err != nil {
        return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
    }
    return &source{raw: raw, location: abs, base: &url.URL{Path: filepath.ToSlash(abs)}, isFile: true}, nil
}

func loadOpenAPI(ctx context.Context, src *source, kind documentKind, settings Settings) (*openapi3.T, error) {
    loader := newLoader(settings, src.isFile)
    var doc *openapi3.T
    switch kind {
    case kindOpenAPI3:
        var err error
        doc, err = loader.LoadFromDataWithPath(src.raw, src.base)
        if err != nil {
            return nil, mapValidateOrParseErr(err, src.location)
        }
    case kindSwagger2:
        raw := src.raw
        if fixed, changed, _ := preprocessV2ForCompatibility(raw); changed {
            settings.Logger.Debug("rewrote swagger 2.0 body parameters for conversion", "location", src.location)
            raw = fixed
        }
        var err error
        doc, err = convertV2ToV3(raw)
        if err != nil {
            return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: src.location, Cause: err}
        }
        if err := loader.ResolveRefsIn(doc, nil); err != nil {
            settings.Logger.Warn("failed to resolve refs after conversion", "location", src.location, "err", err)
        }
    default:
        return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: src.location}
    }

    if err := doc.Validate(ctx); err != nil {
        if !canProceedDespiteValidation(err) {
            return nil, mapValidateOrParseErr(err, src.location)
        }
        settings.Logger.Warn("proceeding despite validation error", "location", src.location, "err", err)
    }
    return doc, nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
    loader := openapi3.NewLoader()
    loader.IsExternalRefsAllowed = true
    client := &http.Client{Timeout: settings.HTTPTimeout}
    allowFile := settings.AllowFileRefs || rootIsFile
    loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
        switch strings.ToLower(uri.Scheme) {
        case "", "file":
            if !allowFile {
                return nil, fmt.Errorf("blocked file ref: %s", uri.String())
            }
            path := uri.Path
            if path == "" {
                path = uri.Opaque
            }
            return os.ReadFile(filepath.FromSlash(path))
        case "http", "https":
            resp, err := client.Get(uri.String())
            if err != nil {
                return nil, err
            }
            defer resp.Body.Close()
            if resp.StatusCode >= 400 {
                return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
            }
            return io.ReadAll(resp.Body)
        default:
            return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
        }
    }
    return loader
}

// detectDocumentKind sniffs the top-level keys of a YAML or JSON document.
func detectDocumentKind(data []byte) (documentKind, error) {
    var root map[string]any
    if err := yaml.Unmarshal(data, &root); err != nil {
        return kindUnknown, fmt.Errorf("parse spec: %w", err)
    }
    if v, ok := root["openapi"]; ok {
        if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
            return kindOpenAPI3, nil
        }
    }
    if v, ok := root["swagger"]; ok {
        if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
            return kindSwagger2, nil
        }
    }
    if _, ok := root["methods"].([]any); ok {
        return kindDescriptors, nil
    }
    return kindUnknown, errors.New("spec: missing or unknown version (expected 'openapi: 3.x', 'swagger: 2.0' or a 'methods' list)")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
    // openapi2 types only honour $ref through their JSON decoders.
    raw, err := yamljson.YAMLToJSON(data)
    if err != nil {
        return nil, err
    }
    var v2 openapi2.T
    if err := json.Unmarshal(raw, &v2); err != nil {
        return nil, err
    }
    return openapi2conv.ToV3(&v2)
}

// errPermanent marks fetch failures that retrying cannot fix.
type errPermanent struct{ err error }

func (e errPermanent) Error() string { return e.err.Error() }
func (e errPermanent) Unwrap() error { return e.err }

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
    client := &http.Client{Timeout: settings.HTTPTimeout}
    backoff := settings.BackoffBase
    if backoff <= 0 {
        backoff = 200 * time.Millisecond
    }
    attempts := settings.MaxRetries
    if attempts <= 0 {
        attempts = 1
    }

    var body []byte
    err := retry.Do(
        func() error {
            req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
            if err != nil {
                return errPermanent{err}
            }
            resp, err := client.Do(req)
            if err != nil {
                return err
            }
            defer resp.Body.Close()
            if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
                return fmt.Errorf("transient http error %d", resp.StatusCode)
            }
            if resp.StatusCode >= 300 {
                snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
                return errPermanent{fmt.Errorf("http %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))}
            }
            body, err = io.ReadAll(resp.Body)
            return err
        },
        retry.Context(ctx),
        retry.Attempts(uint(attempts)),
        retry.Delay(backoff),
        retry.DelayType(retry.BackOffDelay),
        retry.LastErrorOnly(true),
        retry.RetryIf(func(err error) bool {
            var perm errPermanent
            return !errors.As(err, &perm)
        }),
        retry.OnRetry(func(n uint, err error) {
            settings.Logger.Debug("retrying fetch", "url", rawURL, "attempt", n+1, "err", err)
        }),
    )
    if err != nil {
        var perm errPermanent
        if errors.As(err, &perm) {
            return nil, perm.err
        }
        return nil, err
    }
    return body, nil
}

func mapValidateOrParseErr(err error, location string) error {
    pointer := extractJSONPointer(err)
    code := ValidationError
    // Heuristics: some loader errors are parse errors.
    lower := strings.ToLower(err.Error())
    if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") || strings.Contains(lower, "unmarshal") {
        code = ParseError
    }
    return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
    if err == nil {
        return ""
    }
    var me openapi3.MultiError
    if errors.As(err, &me) && len(me) > 0 {
        return extractJSONPointer(me[0])
    }
    var se *openapi3.SchemaError
    if errors.As(err, &se) {
        if parts := se.JSONPointer(); len(parts) > 0 {
            return "#/" + strings.Join(parts, "/")
        }
        if se.SchemaField != "" {
            return se.SchemaField
        }
    }
    if m := jsonPtrRe.FindString(err.Error()); m != "" {
        return m
    }
    return ""
}

// canProceedDespiteValidation reports validation errors that still allow a
// best-effort build, such as unresolved $ref entries.
func canProceedDespiteValidation(err error) bool {
    if err == nil {
        return true
    }
    return strings.Contains(strings.ToLower(err.Error()), "unresolved ref")
}
