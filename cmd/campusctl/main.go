// cmd/campusctl/main.go
//
// Operator CLI for the campus gateway.
//
//	campusctl link     build a deep link that imports a school/subject
//	campusctl resolve  show the context decision for a user record
//	campusctl headers  show the scoping headers for an upstream path
//
// Every command is offline; none of them talks to the gateway or the
// backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "campusctl",
		Short:         "Inspect campus gateway context decisions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := zap.NewDevelopmentConfig()
			cfg.DisableStacktrace = true
			if !verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(l)
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.AddCommand(newLinkCmd(), newResolveCmd(), newHeadersCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "campusctl:", err)
		os.Exit(1)
	}
}
