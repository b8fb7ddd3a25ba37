package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// exitCodeError ends the process with a specific status and no error banner.
type exitCodeError struct {
	code int
	msg  string
}

func (e exitCodeError) Error() string { return e.msg }

var rootCmd = &cobra.Command{
	Use:   "upgradescope",
	Short: "Find consumer code affected by a PHP dependency upgrade",
	Long: `upgradescope compares two versions of a PHP dependency, keeps the changes that
can break code built on it, and checks every consumer class that extends,
implements, composes or references a changed class.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("upgradescope version {{.Version}}\n")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit exitCodeError
		if errors.As(err, &exit) {
			if exit.msg != "" {
				fmt.Fprintln(os.Stderr, exit.msg)
			}
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
