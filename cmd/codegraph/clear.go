package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coderisk/codegraph/internal/graph"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove a repository's nodes and edges from the graph",
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().String("repository", "", "repository identifier to clear, e.g. acme/widgets (required)")
	clearCmd.Flags().Bool("force", false, "required to delete; without it the command only prints a notice and exits")
	clearCmd.Flags().Bool("preserve-schema", true, "keep constraints/indexes, only delete data")
	clearCmd.MarkFlagRequired("repository")
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	repository, _ := cmd.Flags().GetString("repository")
	force, _ := cmd.Flags().GetBool("force")
	preserveSchema, _ := cmd.Flags().GetBool("preserve-schema")

	if !force {
		fmt.Printf("This will remove every node for repository %q. Re-run with --force to proceed.\n", repository)
		return nil
	}

	if err := cfg.RequireNeo4j(); err != nil {
		return err
	}

	backend, err := graph.NewNeo4jBackend(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return fmt.Errorf("connect to neo4j: %w", err)
	}
	defer backend.Close(ctx)

	removed, err := backend.ClearRepository(ctx, repository, preserveSchema)
	if err != nil {
		return fmt.Errorf("clear repository: %w", err)
	}

	fmt.Printf("%s Removed %d nodes for %s\n", color.GreenString("✓"), removed, repository)
	return nil
}
