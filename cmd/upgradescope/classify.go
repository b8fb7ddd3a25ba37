package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/agusespa/upgradescope/internal/classify"
	"github.com/agusespa/upgradescope/internal/parser"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify BEFORE_FILE AFTER_FILE",
	Short: "Classify the change between two versions of one PHP file",
	Long: `Compare two versions of a PHP file declaration by declaration and print the
change details with the overall verdict: cosmetic, signature or logic.

A missing file stands for a file that does not exist in that version.

Examples:
  upgradescope classify old/src/Request.php new/src/Request.php
  upgradescope classify --json old/Base.php new/Base.php`,
	Args: cobra.ExactArgs(2),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Print the classification as JSON")
	rootCmd.AddCommand(classifyCmd)
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	before, err := readOptional(args[0])
	if err != nil {
		return err
	}
	after, err := readOptional(args[1])
	if err != nil {
		return err
	}
	if before == nil && after == nil {
		return fmt.Errorf("neither %s nor %s exists", args[0], args[1])
	}

	pp, err := parser.NewPHPParser()
	if err != nil {
		return err
	}
	defer pp.Close()

	out := classify.NewClassifier(pp).ClassifyFile(args[1], before, after)
	if classifyJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printClassification(cmd.OutOrStdout(), out)
	return nil
}

func printClassification(w io.Writer, out classify.FileClassification) {
	for _, d := range out.Diagnostics {
		fmt.Fprintf(w, "! %s\n", d)
	}
	for _, c := range out.Classes {
		fmt.Fprintf(w, "%s (%s)\n", c.FQCN, c.Verdict)
		for _, line := range c.Lines() {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if len(out.Classes) == 0 && len(out.Diagnostics) == 0 {
		fmt.Fprintln(w, "No structural change.")
	}
	fmt.Fprintf(w, "Verdict: %s\n", out.Verdict)
}
