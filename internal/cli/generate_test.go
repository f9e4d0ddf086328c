package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/swagger2mixin/internal/mixin"
	genspec "github.com/mark3labs/swagger2mixin/internal/spec"
)

// captureConfig swaps the generate runner for one that records the resolved
// config. Tests using it must not run in parallel.
func captureConfig(t *testing.T, args ...string) (*GenerateConfig, error) {
	t.Helper()
	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return captured, err
}

func TestGenerateConfigDefaults(t *testing.T) {
	captured, err := captureConfig(t, "generate", "--input", "spec.yaml")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.Target != "python" || captured.Split != "single" || captured.Out != "." {
		t.Errorf("unexpected defaults: %+v", captured)
	}
	if captured.DefaultTimeout != mixin.DefaultTimeoutSeconds {
		t.Errorf("default timeout: got %d", captured.DefaultTimeout)
	}
	if captured.ClientHeader != "X-Avalara-Client" {
		t.Errorf("client header: got %q", captured.ClientHeader)
	}
}

func TestGenerateConfigFromFlags(t *testing.T) {
	captured, err := captureConfig(t,
		"--verbose",
		"generate",
		"--input", "spec.yaml",
		"--target", "GO",
		"--out", "./build",
		"--file-name", "methods.go",
		"--package", "avatax",
		"--receiver", "AvaTaxClient",
		"--include-tags", "foo,bar",
		"--exclude-tags", "baz",
		"--methods", "get,POST",
		"--paths", "^/accounts/{a,b}",
		"--default-timeout", "30",
		"--client-header", "X-Client",
		"--correction", "user-account-order",
		"--dry-run",
		"--force",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Input != "spec.yaml" {
		t.Errorf("input mismatch: got %q", captured.Input)
	}
	if captured.Target != "go" {
		t.Errorf("target mismatch: got %q", captured.Target)
	}
	if captured.Out != "./build" || captured.FileName != "methods.go" {
		t.Errorf("output mismatch: got %q %q", captured.Out, captured.FileName)
	}
	if captured.Package != "avatax" || captured.Receiver != "AvaTaxClient" {
		t.Errorf("go options mismatch: got %q %q", captured.Package, captured.Receiver)
	}
	if want := []string{"foo", "bar"}; !equalStringSlices(captured.IncludeTags, want) {
		t.Errorf("include tags mismatch: got %v", captured.IncludeTags)
	}
	if want := []string{"baz"}; !equalStringSlices(captured.ExcludeTags, want) {
		t.Errorf("exclude tags mismatch: got %v", captured.ExcludeTags)
	}
	if want := []genspec.HttpMethod{genspec.GET, genspec.POST}; len(captured.httpMethods()) != 2 || captured.httpMethods()[0] != want[0] || captured.httpMethods()[1] != want[1] {
		t.Errorf("methods mismatch: got %v", captured.httpMethods())
	}
	if want := []string{"^/accounts/{a,b}"}; !equalStringSlices(captured.Paths, want) {
		t.Errorf("paths mismatch: got %v", captured.Paths)
	}
	if captured.DefaultTimeout != 30 {
		t.Errorf("timeout mismatch: got %d", captured.DefaultTimeout)
	}
	if captured.ClientHeader != "X-Client" {
		t.Errorf("client header mismatch: got %q", captured.ClientHeader)
	}
	if got := captured.corrections(); len(got) != 1 || got[0] != mixin.CorrectionUserAccountOrder {
		t.Errorf("corrections mismatch: got %v", got)
	}
	if !captured.DryRun || !captured.Force || !captured.Verbose {
		t.Errorf("expected dry-run, force and verbose: %+v", captured)
	}
}

func TestGenerateConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`input: config-spec.yaml
target: go
out: from-config
includeTags:
  - cfgFoo
excludeTags: cfgBar
package: cfgpkg
default-timeout: 20
corrections: [user-account-order]
dryRun: true
force: false
verbose: true
`) + "\n"

	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	captured, err := captureConfig(t,
		"--config", configPath,
		"generate",
		"--input", "flag-spec.yaml",
		"--include-tags", "flagTag",
		"--dry-run=false",
		"--force",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if captured.Input != "flag-spec.yaml" {
		t.Errorf("input: want %q got %q", "flag-spec.yaml", captured.Input)
	}
	if captured.Target != "go" {
		t.Errorf("target: want go got %q", captured.Target)
	}
	if captured.Out != "from-config" {
		t.Errorf("out: want from-config got %q", captured.Out)
	}
	if want := []string{"flagTag"}; !equalStringSlices(captured.IncludeTags, want) {
		t.Errorf("include tags: want %v got %v", want, captured.IncludeTags)
	}
	if want := []string{"cfgBar"}; !equalStringSlices(captured.ExcludeTags, want) {
		t.Errorf("exclude tags: want %v got %v", want, captured.ExcludeTags)
	}
	if captured.Package != "cfgpkg" {
		t.Errorf("package mismatch: got %q", captured.Package)
	}
	if captured.DefaultTimeout != 20 {
		t.Errorf("timeout mismatch: got %d", captured.DefaultTimeout)
	}
	if want := []string{"user-account-order"}; !equalStringSlices(captured.Corrections, want) {
		t.Errorf("corrections mismatch: got %v", captured.Corrections)
	}
	if captured.DryRun {
		t.Errorf("expected dry-run false after flag override")
	}
	if !captured.Force {
		t.Errorf("expected force true after flag override")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true from config file")
	}
	if captured.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", captured.ConfigPath)
	}
}

func TestGenerateConfigFromTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "swagger2mixin.toml")
	configContent := `input = "swagger.json"
target = "go"
split = "category"
default_timeout = 15
methods = ["get", "delete"]
check = true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	captured, err := captureConfig(t, "--config", configPath, "generate")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.Input != "swagger.json" || captured.Target != "go" || captured.Split != "category" {
		t.Errorf("unexpected config: %+v", captured)
	}
	if captured.DefaultTimeout != 15 {
		t.Errorf("timeout mismatch: got %d", captured.DefaultTimeout)
	}
	if want := []string{"get", "delete"}; !equalStringSlices(captured.Methods, want) {
		t.Errorf("methods mismatch: got %v", captured.Methods)
	}
	if !captured.Check {
		t.Errorf("expected check true")
	}
}

func TestGenerateConfigUnknownKey(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("unknown: value\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	root.SetArgs([]string{
		"--config", configPath,
		"generate",
		"--input", "spec.yaml",
	})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestGenerateConfigValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing input", []string{"generate"}, "--input is required"},
		{"bad target", []string{"generate", "--input", "x", "--target", "ruby"}, "unsupported --target"},
		{"bad split", []string{"generate", "--input", "x", "--split", "tag"}, "unsupported --split"},
		{"file name with category split", []string{"generate", "--input", "x", "--split", "category", "--file-name", "a.py"}, "cannot be combined"},
		{"file name with directory", []string{"generate", "--input", "x", "--file-name", "sub/a.py"}, "plain file name"},
		{"bad method", []string{"generate", "--input", "x", "--methods", "fetch"}, "unknown HTTP method"},
		{"bad correction", []string{"generate", "--input", "x", "--correction", "nope"}, "unknown correction"},
		{"non-positive timeout", []string{"generate", "--input", "x", "--default-timeout", "0"}, "must be positive"},
		{"check with force", []string{"generate", "--input", "x", "--check", "--force"}, "--check cannot be combined"},
		{"tag overlap", []string{"generate", "--input", "x", "--include-tags", "a", "--exclude-tags", "a"}, "overlap"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			root := NewRootCmd()
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			root.SetArgs(tc.args)
			err := root.Execute()
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("expected usage error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCategoryModuleName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"":               "default",
		"Accounts":       "accounts",
		"TaxCodes":       "tax_codes",
		"Nexus Settings": "nexus_settings",
	}
	for in, want := range cases {
		if got := categoryModuleName(in); got != want {
			t.Errorf("categoryModuleName(%q) = %q, want %q", in, got, want)
		}
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
