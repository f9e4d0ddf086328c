package cli

import (
    "bytes"
    "errors"
    "io"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/mark3labs/swagger2mixin/internal/emitter"
)

const minimalSpecYAML = "" +
    "openapi: 3.0.0\n" +
    "info:\n" +
    "  title: Test API\n" +
    "  version: '1.0.0'\n" +
    "paths:\n" +
    "  /accounts/{accountId}:\n" +
    "    get:\n" +
    "      operationId: GetAccount\n" +
    "      summary: Retrieve a single account\n" +
    "      tags: [Accounts]\n" +
    "      parameters:\n" +
    "        - name: accountId\n" +
    "          in: path\n" +
    "          required: true\n" +
    "          schema: {type: integer, format: int32}\n" +
    "        - name: $include\n" +
    "          in: query\n" +
    "          schema: {type: string}\n" +
    "        - name: X-Avalara-Client\n" +
    "          in: header\n" +
    "          schema: {type: string}\n" +
    "      responses:\n" +
    "        '200':\n" +
    "          description: ok\n" +
    "  /utilities/ping:\n" +
    "    get:\n" +
    "      operationId: Ping\n" +
    "      tags: [Utilities]\n" +
    "      responses:\n" +
    "        '200':\n" +
    "          description: ok\n"

func captureStdout(fn func()) string {
    old := os.Stdout
    r, w, _ := os.Pipe()
    os.Stdout = w
    defer func() { os.Stdout = old }()
    fn()
    _ = w.Close()
    var buf bytes.Buffer
    _, _ = io.Copy(&buf, r)
    return buf.String()
}

func writeSpec(t *testing.T) string {
    t.Helper()
    specPath := filepath.Join(t.TempDir(), "spec.yaml")
    if err := os.WriteFile(specPath, []byte(minimalSpecYAML), 0o600); err != nil {
        t.Fatalf("write spec: %v", err)
    }
    return specPath
}

func execute(args ...string) error {
    root := NewRootCmd()
    root.SetOut(io.Discard)
    root.SetErr(io.Discard)
    root.SetArgs(args)
    return root.Execute()
}

func TestGeneratePipeline_DryRun_Python(t *testing.T) {
    specPath := writeSpec(t)
    outDir := filepath.Join(t.TempDir(), "out-py")

    out := captureStdout(func() {
        if err := execute("generate", "--input", specPath, "--out", outDir, "--dry-run"); err != nil {
            t.Fatalf("execute: %v", err)
        }
    })
    if !strings.Contains(out, "Planned writes to") || !strings.Contains(out, "- client_methods.py (create") {
        t.Fatalf("expected dry-run plan output, got: %s", out)
    }
    // Dry-run should not create the directory
    if _, err := os.Stat(outDir); err == nil {
        t.Fatalf("expected no writes on dry-run")
    }
}

func TestGeneratePipeline_Python(t *testing.T) {
    specPath := writeSpec(t)
    outDir := t.TempDir()

    captureStdout(func() {
        if err := execute("generate", "--input", specPath, "--out", outDir); err != nil {
            t.Fatalf("execute: %v", err)
        }
    })
    data, err := os.ReadFile(filepath.Join(outDir, "client_methods.py"))
    if err != nil {
        t.Fatalf("read output: %v", err)
    }
    s := string(data)
    for _, want := range []string{
        "class Mixin:",
        "    def get_account(self, account_id, include=None):",
        "requests.get('{}/accounts/{}'.format(self.base_url, account_id),",
        "params=include,",
        "    def ping(self):",
    } {
        if !strings.Contains(s, want) {
            t.Fatalf("missing %q in:\n%s", want, s)
        }
    }
    if strings.Contains(s, "X-Avalara-Client") {
        t.Fatalf("client identity header leaked into output:\n%s", s)
    }
}

func TestGeneratePipeline_Go_CategorySplit(t *testing.T) {
    specPath := writeSpec(t)
    outDir := t.TempDir()

    captureStdout(func() {
        if err := execute("generate", "--input", specPath, "--out", outDir, "--target", "go", "--split", "category", "--package", "avatax"); err != nil {
            t.Fatalf("execute: %v", err)
        }
    })
    accounts, err := os.ReadFile(filepath.Join(outDir, "accounts.go"))
    if err != nil {
        t.Fatalf("read accounts.go: %v", err)
    }
    if !strings.Contains(string(accounts), "package avatax") || !strings.Contains(string(accounts), "func (c *Client) GetAccount(accountId int32, include map[string]string) (*http.Response, error) {") {
        t.Fatalf("unexpected accounts.go:\n%s", accounts)
    }
    if _, err := os.Stat(filepath.Join(outDir, "utilities.go")); err != nil {
        t.Fatalf("expected utilities.go: %v", err)
    }
}

func TestGeneratePipeline_CheckAndConflicts(t *testing.T) {
    specPath := writeSpec(t)
    outDir := t.TempDir()
    target := filepath.Join(outDir, "client_methods.py")

    captureStdout(func() {
        if err := execute("generate", "--input", specPath, "--out", outDir); err != nil {
            t.Fatalf("first run: %v", err)
        }
        if err := execute("generate", "--input", specPath, "--out", outDir, "--check"); err != nil {
            t.Fatalf("check after generate: %v", err)
        }
    })

    if err := os.WriteFile(target, []byte("# edited\n"), 0o644); err != nil {
        t.Fatalf("edit output: %v", err)
    }
    var checkErr error
    diff := captureStdout(func() {
        checkErr = execute("generate", "--input", specPath, "--out", outDir, "--check")
    })
    if !errors.Is(checkErr, emitter.ErrStale) {
        t.Fatalf("expected stale error, got %v", checkErr)
    }
    if !strings.Contains(diff, "-# edited") {
        t.Fatalf("expected diff on stdout, got: %s", diff)
    }

    err := execute("generate", "--input", specPath, "--out", outDir)
    if !errors.Is(err, ErrUsage) || !errors.Is(err, emitter.ErrConflict) {
        t.Fatalf("expected conflict usage error, got %v", err)
    }

    captureStdout(func() {
        if err := execute("generate", "--input", specPath, "--out", outDir, "--force"); err != nil {
            t.Fatalf("force: %v", err)
        }
    })
    data, err := os.ReadFile(target)
    if err != nil {
        t.Fatalf("read output: %v", err)
    }
    if strings.Contains(string(data), "# edited") {
        t.Fatalf("expected --force to overwrite the edited file")
    }
}

func TestGeneratePipeline_InvalidSpecIsUsageError(t *testing.T) {
    specPath := filepath.Join(t.TempDir(), "broken.yaml")
    if err := os.WriteFile(specPath, []byte("openapi: 3.0.0\ninfo: [\n"), 0o600); err != nil {
        t.Fatalf("write spec: %v", err)
    }
    err := execute("generate", "--input", specPath, "--out", t.TempDir(), "--dry-run")
    if !errors.Is(err, ErrUsage) {
        t.Fatalf("expected usage error, got %v", err)
    }
    if !strings.HasPrefix(err.Error(), "spec: ") {
        t.Fatalf("unexpected message: %v", err)
    }
}
