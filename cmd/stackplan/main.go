// Package main is the entry point for the stackplan CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stackplan/stackplan/pkg/compiler"
	"github.com/stackplan/stackplan/pkg/graph"
	"github.com/stackplan/stackplan/pkg/plan"
)

var (
	outputFormat string
	permissive   bool
	verbosity    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "stackplan",
		Short:         "Compile infrastructure topology templates into execution plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&permissive, "permissive", false, "Skip attribute and resource type checks against the schema registry")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity")

	validateCmd := &cobra.Command{
		Use:   "validate [template]",
		Short: "Validate a template and report every violation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readTemplate(args)
			if err != nil {
				return err
			}

			c, err := newCompiler()
			if err != nil {
				return err
			}

			if _, err := c.Compile(data); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "template is valid")
			return nil
		},
	}
	rootCmd.AddCommand(validateCmd)

	planCmd := &cobra.Command{
		Use:   "plan [template]",
		Short: "Compile a template and emit its execution plan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readTemplate(args)
			if err != nil {
				return err
			}

			c, err := newCompiler()
			if err != nil {
				return err
			}

			p, err := c.Compile(data)
			if err != nil {
				return err
			}

			return plan.Emit(cmd.OutOrStdout(), p, plan.Format(outputFormat))
		},
	}
	planCmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "Output format (json or yaml)")
	rootCmd.AddCommand(planCmd)

	if err := rootCmd.Execute(); err != nil {
		// A validation report carries its own multi-line rendering.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readTemplate reads the template from the given file, or from stdin
// when no argument (or "-") is given.
func readTemplate(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return data, nil
}

func newCompiler() (*compiler.Compiler, error) {
	policy := graph.AttributePolicyStrict
	if permissive {
		policy = graph.AttributePolicyPermissive
	}

	return compiler.New(compiler.Config{
		AttributePolicy: policy,
		Logger:          newLogger(),
	})
}

// newLogger builds a zap-backed logr.Logger whose V-levels map to the
// -v count given on the command line.
func newLogger() logr.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	cfg.OutputPaths = []string{"stderr"}

	z, err := cfg.Build()
	if err != nil {
		return logr.Discard()
	}
	return zapr.NewLogger(z)
}
