package cli

import (
    "fmt"

    "github.com/MakeNowJust/heredoc"
    "github.com/spf13/cobra"
)

// Execute runs the swagger2mixin CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "swagger2mixin",
        Short: "Generate client mixin methods from Swagger/OpenAPI documents",
        Long: heredoc.Doc(`
            swagger2mixin turns the operations of a Swagger 2.0 or OpenAPI 3
            document into the methods of a client-library mixin, one method per
            operation, in Python or Go.
        `),
        SilenceErrors: true,
        SilenceUsage:  true,
        RunE: func(cmd *cobra.Command, args []string) error {
            return cmd.Help()
        },
    }

    cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML, JSON or TOML)")
    cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging on stderr")

    for _, sub := range []*cobra.Command{cmd, newGenerateCmd(), newInitCmd()} {
        // Unknown flags and bad values become usage errors carrying the help text.
        sub.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
            return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
        })
        if sub != cmd {
            cmd.AddCommand(sub)
        }
    }

    return cmd
}
