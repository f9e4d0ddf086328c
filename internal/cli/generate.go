package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/log"
	"github.com/gobuffalo/flect"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swagger2mixin/internal/emitter"
	"github.com/mark3labs/swagger2mixin/internal/emitter/goemitter"
	"github.com/mark3labs/swagger2mixin/internal/emitter/pyemitter"
	"github.com/mark3labs/swagger2mixin/internal/mixin"
	genspec "github.com/mark3labs/swagger2mixin/internal/spec"
)

const (
	targetPython = "python"
	targetGo     = "go"

	splitSingle   = "single"
	splitCategory = "category"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input          string
	Target         string
	Out            string
	FileName       string
	Package        string
	Receiver       string
	Split          string
	IncludeTags    []string
	ExcludeTags    []string
	Methods        []string
	Paths          []string
	DefaultTimeout int
	ClientHeader   string
	Corrections    []string
	ConfigPath     string
	DryRun         bool
	Force          bool
	Check          bool
	Verbose        bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Target:         targetPython,
		Out:            ".",
		Split:          splitSingle,
		DefaultTimeout: mixin.DefaultTimeoutSeconds,
		ClientHeader:   mixin.ClientIdentityHeader,
	}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate client mixin methods from an OpenAPI/Swagger document",
		Long: heredoc.Doc(`
			Generate client mixin methods from an OpenAPI/Swagger document or a
			method descriptor file. Each operation becomes one method that builds
			the request URL, forwards optional query parameters and the request
			body, and calls the host client's HTTP helpers.

			Options can be provided via flags, a config file, or defaults.
		`),
		Example: heredoc.Doc(`
			  swagger2mixin generate --input swagger.json --out ./avatax
			  swagger2mixin generate --input spec.yaml --target go --package avatax --receiver AvaTaxClient
			  swagger2mixin --config swagger2mixin.yaml generate --split category --check
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger/OpenAPI document or descriptor file")
	flags.String("target", "", "Target dialect to emit (python|go); defaults to python")
	flags.String("out", "", "Output directory; defaults to the current directory")
	flags.String("file-name", "", "Output file name for --split single")
	flags.String("package", "", "Go package name of the generated file (go only)")
	flags.String("receiver", "", "Go host type the methods are declared on (go only)")
	flags.String("split", "", "Module layout (single|category)")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include operations using these HTTP methods")
	flags.StringArray("paths", nil, "Only include operations whose path matches this regular expression (repeatable)")
	flags.Int("default-timeout", 0, "Timeout in seconds used when the host client sets none")
	flags.String("client-header", "", "Header supplied by the host client and left out of signatures")
	flags.StringSlice("correction", nil, fmt.Sprintf("Apply a named source correction (%s)", strings.Join(mixin.KnownCorrections(), ", ")))
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing files whose content differs")
	flags.Bool("check", false, "Fail with a diff if generated files are out of date")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"input":         &cfg.Input,
		"target":        &cfg.Target,
		"out":           &cfg.Out,
		"file-name":     &cfg.FileName,
		"package":       &cfg.Package,
		"receiver":      &cfg.Receiver,
		"split":         &cfg.Split,
		"client-header": &cfg.ClientHeader,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	lists := map[string]*[]string{
		"include-tags": &cfg.IncludeTags,
		"exclude-tags": &cfg.ExcludeTags,
		"methods":      &cfg.Methods,
		"correction":   &cfg.Corrections,
	}
	for name, dst := range lists {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeTags(value)
	}

	bools := map[string]*bool{
		"dry-run": &cfg.DryRun,
		"force":   &cfg.Force,
		"check":   &cfg.Check,
		"verbose": &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("paths") {
		value, err := flags.GetStringArray("paths")
		if err != nil {
			return err
		}
		cfg.Paths = sanitizeTags(value)
	}
	if flags.Changed("default-timeout") {
		value, err := flags.GetInt("default-timeout")
		if err != nil {
			return err
		}
		cfg.DefaultTimeout = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Target = strings.ToLower(strings.TrimSpace(c.Target))
	c.Out = strings.TrimSpace(c.Out)
	c.FileName = strings.TrimSpace(c.FileName)
	c.Package = strings.TrimSpace(c.Package)
	c.Receiver = strings.TrimSpace(c.Receiver)
	c.Split = strings.ToLower(strings.TrimSpace(c.Split))
	c.ClientHeader = strings.TrimSpace(c.ClientHeader)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Methods = sanitizeTags(c.Methods)
	c.Paths = sanitizeTags(c.Paths)
	c.Corrections = sanitizeTags(c.Corrections)
	if c.Target == "" {
		c.Target = targetPython
	}
	if c.Split == "" {
		c.Split = splitSingle
	}
	if c.Out == "" {
		c.Out = "."
	}
	if c.ClientHeader == "" {
		c.ClientHeader = mixin.ClientIdentityHeader
	}
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}

	switch c.Target {
	case targetPython, targetGo:
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --target %q (allowed: python, go)", c.Target))
	}

	switch c.Split {
	case splitSingle, splitCategory:
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --split %q (allowed: single, category)", c.Split))
	}
	if c.Split == splitCategory && c.FileName != "" {
		return newUsageError("generate: --file-name cannot be combined with --split category")
	}
	if c.FileName != "" && (filepath.Base(c.FileName) != c.FileName || c.FileName == "." || c.FileName == "..") {
		return newUsageError(fmt.Sprintf("generate: --file-name %q must be a plain file name", c.FileName))
	}

	if c.DefaultTimeout <= 0 {
		return newUsageError(fmt.Sprintf("generate: --default-timeout must be positive, got %d", c.DefaultTimeout))
	}

	for _, m := range c.Methods {
		if _, ok := genspec.ParseHttpMethod(m); !ok {
			return newUsageError(fmt.Sprintf("generate: unknown HTTP method %q in --methods", m))
		}
	}
	for _, name := range c.Corrections {
		if _, err := mixin.ParseCorrection(name); err != nil {
			return newUsageError("generate: " + err.Error())
		}
	}

	if c.Check && (c.DryRun || c.Force) {
		return newUsageError("generate: --check cannot be combined with --dry-run or --force")
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

func (c *GenerateConfig) httpMethods() []genspec.HttpMethod {
	var out []genspec.HttpMethod
	for _, m := range c.Methods {
		if verb, ok := genspec.ParseHttpMethod(m); ok {
			out = append(out, verb)
		}
	}
	return out
}

func (c *GenerateConfig) corrections() []mixin.Correction {
	var out []mixin.Correction
	for _, name := range c.Corrections {
		if corr, err := mixin.ParseCorrection(name); err == nil {
			out = append(out, corr)
		}
	}
	return out
}

func (c *GenerateConfig) dialect() mixin.Dialect {
	if c.Target == targetGo {
		return goemitter.New(goemitter.WithPackage(c.Package), goemitter.WithReceiver(c.Receiver))
	}
	return pyemitter.New()
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := newLogger(cfg.Verbose)

	// 1) Load the document and build the method descriptors
	model, err := genspec.LoadModel(ctx, cfg.Input,
		genspec.WithLogger(logger),
		genspec.WithBuildOptions(
			genspec.WithIncludeTags(cfg.IncludeTags),
			genspec.WithExcludeTags(cfg.ExcludeTags),
			genspec.WithMethods(cfg.httpMethods()),
			genspec.WithPathPatterns(cfg.Paths),
		),
	)
	if err != nil {
		var se *genspec.SpecError
		if errors.As(err, &se) {
			msg := fmt.Sprintf("spec: %s", se.Message)
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			if se.JSONPointer != "" {
				msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
			}
			return wrapUsageError(msg, err)
		}
		return fmt.Errorf("build model: %w", err)
	}
	if len(model.Methods) == 0 {
		logger.Warn("no operations matched the filters", "input", cfg.Input)
	}

	// 2) Render every module
	gen := mixin.New(cfg.dialect(),
		mixin.WithLogger(logger),
		mixin.WithDefaultTimeout(cfg.DefaultTimeout),
		mixin.WithClientIdentityHeader(cfg.ClientHeader),
		mixin.WithCorrections(cfg.corrections()...),
	)
	files, err := renderModules(gen, model, cfg)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	// 3) Write, plan or check
	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}
	res, err := emitter.Write(ctx, files, emitter.Options{
		OutDir: cfg.Out,
		Force:  cfg.Force,
		DryRun: cfg.DryRun,
		Check:  cfg.Check,
		Logger: logger,
	})
	var stale *emitter.StaleError
	if errors.As(err, &stale) {
		fmt.Fprint(os.Stdout, stale.Diff)
		return err
	}
	if err != nil {
		return wrapOutputError(err, absOut)
	}

	switch {
	case cfg.DryRun:
		printPlan(res)
	case cfg.Check:
		fmt.Fprintf(os.Stdout, "%d files in %s are up to date\n", len(res.Planned), res.OutDir)
	default:
		fmt.Fprintf(os.Stdout, "Wrote %d of %d files to %s\n", res.Written, len(res.Planned), res.OutDir)
	}
	return nil
}

// renderModules groups methods into output files keyed by relative path.
func renderModules(gen *mixin.Generator, model *genspec.ApiModel, cfg *GenerateConfig) (map[string][]byte, error) {
	ext := gen.Dialect().Extension()
	files := make(map[string][]byte)

	if cfg.Split == splitSingle {
		name := cfg.FileName
		if name == "" {
			name = "client_methods." + ext
		}
		out, err := gen.Render(mixin.Module{
			Name:       strings.TrimSuffix(name, filepath.Ext(name)),
			Title:      model.Title,
			ApiVersion: model.ApiVersion,
		}, model.Methods)
		if err != nil {
			return nil, err
		}
		files[name] = out
		return files, nil
	}

	var order []string
	groups := make(map[string][]genspec.MethodDescriptor)
	for _, m := range model.Methods {
		if _, ok := groups[m.Category]; !ok {
			order = append(order, m.Category)
		}
		groups[m.Category] = append(groups[m.Category], m)
	}
	var errs []error
	for _, category := range order {
		name := categoryModuleName(category)
		if _, taken := files[name+"."+ext]; taken {
			errs = append(errs, fmt.Errorf("categories map to the same file %s.%s", name, ext))
			continue
		}
		out, err := gen.Render(mixin.Module{
			Name:       name,
			Title:      model.Title,
			ApiVersion: model.ApiVersion,
			Category:   category,
		}, groups[category])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files[name+"."+ext] = out
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return files, nil
}

func categoryModuleName(category string) string {
	name := flect.Underscore(strings.TrimSpace(category))
	if name == "" {
		return "default"
	}
	return name
}

func printPlan(res *emitter.Result) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", res.OutDir, len(res.Planned))
	for _, p := range res.Planned {
		fmt.Fprintf(os.Stdout, "- %s (%s, %d bytes)\n", p.RelPath, p.Status, p.Size)
	}
}

func wrapOutputError(err error, outDir string) error {
	if errors.Is(err, emitter.ErrConflict) {
		return wrapUsageError(fmt.Sprintf("output error for %s: %v", outDir, err), err)
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "output directory") || strings.Contains(lower, "not a directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out.", outDir, msg))
	}
	return err
}

func newLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{Level: level, Prefix: "swagger2mixin"})
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

// applyGenerateConfigFromFile reads YAML or JSON, or TOML when the file ends
// in .toml.
func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	strs := map[string]*string{
		"input":        &cfg.Input,
		"target":       &cfg.Target,
		"out":          &cfg.Out,
		"filename":     &cfg.FileName,
		"package":      &cfg.Package,
		"receiver":     &cfg.Receiver,
		"split":        &cfg.Split,
		"clientheader": &cfg.ClientHeader,
	}
	lists := map[string]*[]string{
		"includetags": &cfg.IncludeTags,
		"excludetags": &cfg.ExcludeTags,
		"methods":     &cfg.Methods,
		"paths":       &cfg.Paths,
		"corrections": &cfg.Corrections,
		"correction":  &cfg.Corrections,
	}
	bools := map[string]*bool{
		"dryrun":  &cfg.DryRun,
		"force":   &cfg.Force,
		"check":   &cfg.Check,
		"verbose": &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := lists[normalized]; ok {
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = sanitizeTags(list)
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		if normalized == "defaulttimeout" {
			val, err := valueAsInt(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.DefaultTimeout = val
			continue
		}
		return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

// valueAsInt accepts YAML ints, TOML int64s and JSON-style floats.
func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("expected integer, got %v", val)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
