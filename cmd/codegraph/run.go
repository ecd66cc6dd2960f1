package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coderisk/codegraph/internal/artifact"
	"github.com/coderisk/codegraph/internal/config"
	"github.com/coderisk/codegraph/internal/git"
	"github.com/coderisk/codegraph/internal/graph"
	"github.com/coderisk/codegraph/internal/ingestion"
	"github.com/coderisk/codegraph/internal/metrics"
	"github.com/coderisk/codegraph/internal/state"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion pipeline against a repository",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("repo", "", "repository URL or local path (required)")
	runCmd.Flags().String("branch", "main", "branch to ingest")
	runCmd.Flags().String("output-dir", "", "directory for --step JSON artifacts (defaults to workspace artifacts dir)")
	runCmd.Flags().String("mode", "incremental", "incremental | full")
	runCmd.Flags().Bool("force-reindex", false, "force a full scan regardless of prior commit history")
	runCmd.Flags().String("step", "all", "git | parse | graph | all")
	runCmd.Flags().String("resolution-strategy", "", "join | hashmap | sharded (overrides config)")
	runCmd.Flags().Bool("immediate-resolution", false, "record immediate resolution mode; placeholders are still resolved after all files are written")
	runCmd.Flags().String("resume-from", "", "accepted but not read; every run starts from change detection")
	runCmd.Flags().String("neo4j-uri", "", "overrides NEO4J_URI / config")
	runCmd.Flags().String("neo4j-user", "", "overrides NEO4J_USER / config")
	runCmd.Flags().String("neo4j-password", "", "overrides NEO4J_PASSWORD / config")
	runCmd.Flags().String("metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090); disabled if empty")
	runCmd.MarkFlagRequired("repo")
}

func runRun(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	repoArg, _ := cmd.Flags().GetString("repo")
	branch, _ := cmd.Flags().GetString("branch")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	mode, _ := cmd.Flags().GetString("mode")
	forceReindex, _ := cmd.Flags().GetBool("force-reindex")
	step, _ := cmd.Flags().GetString("step")
	strategy, _ := cmd.Flags().GetString("resolution-strategy")
	immediate, _ := cmd.Flags().GetBool("immediate-resolution")
	neo4jURI, _ := cmd.Flags().GetString("neo4j-uri")
	neo4jUser, _ := cmd.Flags().GetString("neo4j-user")
	neo4jPassword, _ := cmd.Flags().GetString("neo4j-password")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	if neo4jURI != "" {
		cfg.Neo4j.URI = neo4jURI
	}
	if neo4jUser != "" {
		cfg.Neo4j.User = neo4jUser
	}
	if neo4jPassword != "" {
		cfg.Neo4j.Password = neo4jPassword
	}
	if strategy != "" {
		cfg.Resolution.Strategy = strategy
	}
	cfg.Resolution.Immediate = cfg.Resolution.Immediate || immediate
	if outputDir == "" {
		outputDir = cfg.Workspace.ArtifactsDir
	}

	if result := cfg.Validate(config.ValidationContextRun); result.HasErrors() {
		return fmt.Errorf("configuration invalid:\n%s", result.Error())
	}

	repoPath, repository, repoURL, err := resolveRepoSource(ctx, repoArg, branch)
	if err != nil {
		return fmt.Errorf("resolve repository source: %w", err)
	}

	lock, err := state.AcquireRunLock(cfg.Workspace.LockFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	history, err := state.LoadCommitHistory(cfg.Workspace.StateFile)
	if err != nil {
		return err
	}
	priorCommit := history.Get(repoURL, branch)
	if mode == "full" {
		priorCommit = ""
	}

	fmt.Printf("%s codegraph run (%s@%s)\n", color.CyanString("▶"), repository, branch)
	if stats, err := ingestion.CountFiles(repoPath); err == nil {
		fmt.Printf("  repository has %s files (%d JS, %d TS, %d Python)\n",
			humanize.Comma(int64(stats.Total)), stats.JavaScript, stats.TypeScript, stats.Python)
	}

	metricsShutdown, err := metrics.Server(metricsAddr)
	if err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	defer metricsShutdown(ctx)
	if metricsAddr != "" {
		fmt.Printf("  metrics listening on %s/metrics\n", metricsAddr)
	}

	fmt.Printf("  [1/4] Connecting to graph store...\n")
	backend, err := graph.NewNeo4jBackend(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return fmt.Errorf("connect to neo4j: %w", err)
	}
	defer backend.Close(ctx)

	fmt.Printf("  [2/4] Detecting changes (mode=%s, step=%s)...\n", mode, step)
	pipeline := ingestion.NewPipeline(backend, cfg.Pipeline, cfg.Resolution, logger.WithField("component", "pipeline"))

	result, err := pipeline.Run(ctx, ingestion.RunOptions{
		RepoPath:      repoPath,
		Repository:    repository,
		RepositoryURL: repoURL,
		Branch:        branch,
		PriorCommit:   priorCommit,
		Detector: git.DetectorConfig{
			MaxFileSize:  cfg.Pipeline.MaxFileSize,
			ExtraIgnores: cfg.IgnoreRule.ExtraPatterns,
			ForceReindex: forceReindex,
			Mode:         detectorModeFor(mode),
		},
	})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	fmt.Printf("  [3/4] Resolving placeholders (strategy=%s)...\n", cfg.Resolution.Strategy)
	history.Set(repoURL, branch, result.Commit)
	if err := history.Save(); err != nil {
		return fmt.Errorf("persist commit history: %w", err)
	}

	fmt.Printf("  [4/4] Writing summary artifact...\n")
	out := &artifact.GraphOutput{
		Repository:     repository,
		FilesProcessed: result.FilesParsed,
		FilesFailed:    result.FilesFailed,
		GraphStats: artifact.GraphStats{
			Files:           result.FilesParsed,
			Classes:         result.ClassesWritten,
			Functions:       result.FunctionsWritten,
			CallSites:       result.CallSitesWritten,
			ImportSites:     result.ImportSitesWritten,
			ResolvedCalls:   result.CallSitesResolved,
			ResolvedImports: result.ImportsResolved,
		},
		Errors: append(result.ParseErrors, result.WriteErrors...),
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	graphOutputPath := filepath.Join(outputDir, "graph_output.json")
	if err := artifact.WriteJSON(graphOutputPath, out); err != nil {
		return fmt.Errorf("write graph_output.json: %w", err)
	}

	fmt.Printf("\n%s Done in %s\n", color.GreenString("✓"), humanize.RelTime(start, time.Now(), "", ""))
	fmt.Printf("  files:     %d processed, %d failed\n", result.FilesParsed, result.FilesFailed)
	fmt.Printf("  entities:  %d classes, %d functions, %d call sites, %d import sites\n",
		result.ClassesWritten, result.FunctionsWritten, result.CallSitesWritten, result.ImportSitesWritten)
	fmt.Printf("  resolved:  %d call sites, %d import sites\n", result.CallSitesResolved, result.ImportsResolved)
	fmt.Printf("  artifact:  %s\n", graphOutputPath)

	return nil
}

func detectorModeFor(mode string) git.ScanMode {
	if mode == "full" {
		return git.ScanFull
	}
	return git.ScanDiff
}

// resolveRepoSource accepts either a local path or a remote URL/shorthand
// (org/repo, https://github.com/org/repo, git@github.com:org/repo.git) and
// returns a checked-out local path, the repository's org/repo identifier,
// and its canonical URL. A remote repository is cloned at branch; a local
// path is used as it is currently checked out.
func resolveRepoSource(ctx context.Context, repoArg, branch string) (path, repository, url string, err error) {
	if info, statErr := os.Stat(repoArg); statErr == nil && info.IsDir() {
		abs, err := filepath.Abs(repoArg)
		if err != nil {
			return "", "", "", err
		}
		org, repo, parseErr := ingestion.ParseRepoURL(filepath.Base(abs))
		if parseErr != nil {
			org, repo = "local", filepath.Base(abs)
		}
		return abs, fmt.Sprintf("%s/%s", org, repo), "file://" + abs, nil
	}

	fullURL := repoArg
	if !strings.Contains(repoArg, "://") && !strings.HasPrefix(repoArg, "git@") {
		org, repo, err := ingestion.ParseRepoURL(repoArg)
		if err != nil {
			return "", "", "", err
		}
		fullURL = ingestion.BuildGitHubURL(org, repo)
	}
	org, repo, err := ingestion.ParseRepoURL(fullURL)
	if err != nil {
		return "", "", "", err
	}

	clonedPath, err := ingestion.CloneRepositoryWithBranch(ctx, fullURL, branch)
	if err != nil {
		return "", "", "", fmt.Errorf("clone %s: %w", fullURL, err)
	}
	return clonedPath, fmt.Sprintf("%s/%s", org, repo), fullURL, nil
}
