package cli

import (
    "context"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/cobra"

    "github.com/mark3labs/swagger2mixin/internal/emitter"
)

const defaultConfigName = "swagger2mixin.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "init",
        Short: "Scaffold a sample swagger2mixin configuration file",
        Long:  "Scaffold a commented swagger2mixin configuration file that documents available options.",
        RunE: func(cmd *cobra.Command, args []string) error {
            out, err := cmd.Flags().GetString("out")
            if err != nil {
                return err
            }
            force, err := cmd.Flags().GetBool("force")
            if err != nil {
                return err
            }
            verbose, err := cmd.Flags().GetBool("verbose")
            if err != nil {
                return err
            }
            cfg := &InitConfig{
                OutputPath: out,
                Force:      force,
                Verbose:    verbose,
            }
            return initRunner(cmd.Context(), cfg)
        },
    }

    cmd.Flags().String("out", defaultConfigName, "Where to write the sample config file")
    cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

    return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
    if ctx == nil {
        ctx = context.Background()
    }

    out := strings.TrimSpace(cfg.OutputPath)
    if out == "" {
        out = defaultConfigName
    }
    absPath, err := filepath.Abs(out)
    if err != nil {
        return fmt.Errorf("init: resolve output path: %w", err)
    }
    if st, err := os.Stat(absPath); err == nil && st.IsDir() {
        return newUsageError(fmt.Sprintf("init: %q is a directory", absPath))
    }

    content := strings.TrimSpace(sampleConfigYAML) + "\n"
    _, err = emitter.Write(ctx, map[string][]byte{filepath.Base(absPath): []byte(content)}, emitter.Options{
        OutDir: filepath.Dir(absPath),
        Force:  cfg.Force,
        Logger: newLogger(cfg.Verbose),
    })
    if errors.Is(err, emitter.ErrConflict) {
        return wrapUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath), err)
    }
    if err != nil {
        return wrapUsageError(fmt.Sprintf("init: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err), err)
    }
    fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
    return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# swagger2mixin configuration (YAML)
# All fields are optional. Command-line flags override config values.
# The same keys work in JSON, or in TOML when the file ends in .toml.

# Path or URL to the Swagger/OpenAPI document or a method descriptor file.
# input: ./swagger.json

# Target dialect to emit (python|go). Defaults to python.
# target: python

# Output directory. Defaults to the current directory.
# out: ./generated

# Output file name when split is single. Defaults to client_methods.<ext>.
# fileName: client_methods.py

# Module layout: one file (single) or one file per first tag (category).
# split: single

# Go only: package clause and host receiver type.
# package: client
# receiver: Client

# Only include operations with these tags (comma-separated or list).
# includeTags: [Accounts, Users]

# Exclude operations with these tags (comma-separated or list).
# excludeTags: [Internal]

# Only include operations using these HTTP methods.
# methods: [get, post]

# Only include operations whose path matches one of these regular expressions.
# paths: ["^/api/v2/accounts"]

# Timeout in seconds used when the host client sets no timeout_limit.
# defaultTimeout: 10

# Header supplied by the host client; never exposed as a parameter.
# clientHeader: X-Avalara-Client

# Named corrections for known inconsistencies in the source document.
# corrections: [user-account-order]

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite existing files whose content differs.
# force: false

# Fail with a diff when generated files are out of date.
# check: false

# Enable debug logging.
# verbose: false
`
