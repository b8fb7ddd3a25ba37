package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/agusespa/upgradescope/internal/parser"
	"github.com/agusespa/upgradescope/internal/resolver"
	"github.com/agusespa/upgradescope/internal/types"
)

var (
	dependentsTargets     []string
	dependentsConsumers   []string
	dependentsKinds       []string
	dependentsExclude     []string
	dependentsExcludeDirs []string
	dependentsJSON        bool
)

var dependentsCmd = &cobra.Command{
	Use:   "dependents",
	Short: "List consumer classes related to target classes",
	Long: `Scan consumer trees once and list every class that extends, implements,
composes or references one of the target classes.

Examples:
  upgradescope dependents --target 'Vendor\Http\Request' --consumer src
  upgradescope dependents --target 'Vendor\Base' --target 'Vendor\Contract' --consumer app --kind extends
  upgradescope dependents --target 'Vendor\Base' --consumer app --json`,
	Args: cobra.NoArgs,
	RunE: runDependents,
}

func init() {
	f := dependentsCmd.Flags()
	f.StringArrayVar(&dependentsTargets, "target", nil, "Fully qualified target class (repeatable)")
	f.StringArrayVar(&dependentsConsumers, "consumer", nil, "Consumer tree to scan (repeatable)")
	f.StringSliceVar(&dependentsKinds, "kind", nil, "Relation kinds: extends, implements, trait, reference (default all)")
	f.StringArrayVar(&dependentsExclude, "exclude", nil, "Namespace glob to exclude (repeatable)")
	f.StringArrayVar(&dependentsExcludeDirs, "exclude-dir", []string{".git", "node_modules", "var", "cache"}, "Directory name glob to skip (repeatable)")
	f.BoolVar(&dependentsJSON, "json", false, "Print the result as JSON")
	_ = dependentsCmd.MarkFlagRequired("target")
	_ = dependentsCmd.MarkFlagRequired("consumer")

	rootCmd.AddCommand(dependentsCmd)
}

type dependentsOutput struct {
	Dependents *types.DependencyResult `json:"dependents"`
	Paths      map[string]string       `json:"paths"`
}

func runDependents(cmd *cobra.Command, args []string) error {
	query := resolver.Query{Targets: dependentsTargets}
	for _, k := range dependentsKinds {
		kind, err := types.ParseRelationKind(k)
		if err != nil {
			return err
		}
		query.Kinds = append(query.Kinds, kind)
	}

	pp, err := parser.NewPHPParser()
	if err != nil {
		return err
	}
	defer pp.Close()

	r, err := resolver.New(pp, resolver.Options{
		ExcludeDirs:       dependentsExcludeDirs,
		ExcludeNamespaces: dependentsExclude,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	deps, paths, err := r.FindDependents(ctx, dependentsConsumers, query)
	if err != nil {
		return fmt.Errorf("dependency scan failed: %w", err)
	}

	// Only the files of related declarations are interesting.
	related := map[string]string{}
	for _, kind := range types.AllRelations {
		for _, list := range deps.For(kind) {
			for _, dep := range list {
				if p, ok := paths.Lookup(dep); ok {
					related[dep] = p
				}
			}
		}
	}

	if dependentsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(dependentsOutput{Dependents: deps, Paths: related})
	}
	printDependents(cmd.OutOrStdout(), query.Targets, deps, related)
	return nil
}

func printDependents(w io.Writer, targets []string, deps *types.DependencyResult, paths map[string]string) {
	if deps.IsEmpty() {
		fmt.Fprintln(w, "No dependents found.")
		return
	}
	for _, target := range targets {
		target = types.NormalizeFQCN(target)
		fmt.Fprintln(w, target)
		for _, kind := range types.AllRelations {
			for _, dep := range deps.Dependents(kind, target) {
				fmt.Fprintf(w, "  %-10s %s  %s\n", kind, dep, paths[dep])
			}
		}
	}
}
