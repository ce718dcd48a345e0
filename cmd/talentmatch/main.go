// Package main is the TalentMatch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/talentmatch/talentmatch/internal/analytics"
	"github.com/talentmatch/talentmatch/internal/cli"
	"github.com/talentmatch/talentmatch/internal/config"
	"github.com/talentmatch/talentmatch/internal/embedding"
	"github.com/talentmatch/talentmatch/internal/engine"
	"github.com/talentmatch/talentmatch/internal/extract"
	"github.com/talentmatch/talentmatch/internal/fileid"
	"github.com/talentmatch/talentmatch/internal/inbox"
	"github.com/talentmatch/talentmatch/internal/models"
	"github.com/talentmatch/talentmatch/internal/profile"
	"github.com/talentmatch/talentmatch/internal/scoring"
	"github.com/talentmatch/talentmatch/internal/server"
	"github.com/talentmatch/talentmatch/internal/storage"
	"github.com/talentmatch/talentmatch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/talentmatch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "talentmatch server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "match":
		runMatch()
	case "ingest":
		runIngest()
	case "delete":
		runDelete()
	case "reindex":
		runReindex()
	case "status":
		runStatus()
	case "summarize":
		runSummarize()
	case "report":
		runReport()
	case "version", "--version", "-v":
		fmt.Printf("talentmatch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (ingest events, index updates, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()
	eng := components.Engine

	if err := eng.LoadSnapshots(cfg.Storage.CandidateIndexPath, cfg.Storage.PostingIndexPath); err != nil {
		logger.Warn("snapshot load failed, indexes start empty", zap.Error(err))
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if cfg.Inbox.Directory != "" {
		ingestOpts := []inbox.Option{}
		if debugMode {
			ingestOpts = append(ingestOpts, inbox.WithLogger(logger))
		}
		ingester := inbox.NewIngester(
			cfg.Inbox.Directory,
			cfg.Inbox.Extensions,
			extract.NewExtractor(),
			profile.NewParser(),
			eng,
			ingestOpts...,
		)
		if err := ingester.Start(rootCtx); err != nil {
			logger.Fatal("Failed to start inbox ingester", zap.Error(err))
		}
		defer ingester.Stop()
	}

	// Hot reload: weight changes in the config file apply without a restart.
	go func() {
		err := config.Watch(rootCtx, resolvedConfigPath, logger, func(fresh *config.Config) {
			if err := eng.SetWeights(fresh.Matching.Weights); err != nil {
				logger.Warn("reloaded weights rejected", zap.Error(err))
			}
		})
		if err != nil && rootCtx.Err() == nil {
			logger.Warn("config watch stopped", zap.Error(err))
		}
	}()

	srv := server.NewServer(
		eng,
		components.Storage,
		components.Reporter,
		cfg,
		logger,
		server.WithConfigPath(resolvedConfigPath),
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if err := eng.SaveSnapshots(cfg.Storage.CandidateIndexPath, cfg.Storage.PostingIndexPath); err != nil {
		logger.Warn("snapshot save failed", zap.Error(err))
	}
	rootCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printMatchUsage prints match subcommand usage.
func printMatchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: talentmatch match [flags] <entity-id>\n\n")
	fmt.Fprintf(fs.Output(), "Matches the stored entity against the opposite index.\n")
	fmt.Fprintf(fs.Output(), "With -kind candidate the ID names a posting and candidates are returned;\n")
	fmt.Fprintf(fs.Output(), "with -kind posting the ID names a candidate and postings are returned.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  talentmatch match -kind candidate job-123
  talentmatch match -kind posting -top-k 5 cv-456
  talentmatch match -kind candidate -min-score 50 -skill-floor job-123
  talentmatch match -output json -kind candidate job-123
`)
}

// matchArgsReorder moves any flags (and their values) that appear after the
// entity ID to the front of the slice so that flag.Parse() sees them. Go's
// flag package stops at the first non-flag argument.
func matchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runMatch() {
	matchArgs := matchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("match", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	kind := fs.String("kind", "candidate", "kind of entities to return: candidate or posting")
	topK := fs.Int("top-k", 10, "number of results")
	minScore := fs.Float64("min-score", 0, "minimum composite score (0-100)")
	skillFloor := fs.Bool("skill-floor", false, "drop results below the required-skill floor")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printMatchUsage(fs) }
	_ = fs.Parse(matchArgs)

	if fs.NArg() < 1 {
		printMatchUsage(fs)
		os.Exit(1)
	}
	entityID := strings.TrimSpace(fs.Arg(0))
	if entityID == "" {
		printMatchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	req := &models.MatchRequest{
		Kind:              models.EntityKind(*kind),
		EntityID:          entityID,
		TopK:              *topK,
		MinScore:          *minScore,
		RequireSkillFloor: *skillFloor,
	}

	if *serverURL != "" {
		// Use HTTP API when server is running (avoids SQLite lock conflict).
		response, err := matchViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteMatchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct storage access (when server is not running).
	components, _ := mustInitialize(*configPath)
	defer components.Close()

	response, err := components.Engine.Match(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteMatchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func matchViaHTTP(serverURL string, req *models.MatchRequest) (*models.MatchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/match", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.MatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: talentmatch ingest [flags] <cv-file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, cfg := mustInitialize(*configPath)
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}

	extractor := extract.NewExtractor()
	parser := profile.NewParser()
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			fmt.Printf("Failed to read directory: %v\n", err)
			os.Exit(1)
		}
		n := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			file := filepath.Join(path, entry.Name())
			if !matchExtension(file, cfg.Inbox.Extensions) {
				continue
			}
			if err := ingestFile(ctx, components.Engine, extractor, parser, file); err != nil {
				fmt.Printf("Skipped %s: %v\n", file, err)
				continue
			}
			n++
		}
		fmt.Printf("Ingested %d CV(s) from %s\n", n, path)
		return
	}

	if err := ingestFile(ctx, components.Engine, extractor, parser, path); err != nil {
		fmt.Printf("Ingest failed: %v\n", err)
		os.Exit(1)
	}
	absPath, _ := filepath.Abs(path)
	fmt.Printf("CV ingested successfully: %s\n", fileid.CandidateID(absPath))
}

func ingestFile(ctx context.Context, eng *engine.Engine, extractor *extract.Extractor, parser *profile.Parser, path string) error {
	text, err := extractor.Extract(path)
	if err != nil {
		return err
	}
	p, err := parser.Parse(text, filepath.Base(path))
	if err != nil {
		return err
	}
	absPath, _ := filepath.Abs(path)
	p.ID = fileid.CandidateID(absPath)
	return eng.UpsertCandidate(ctx, p)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	kind := fs.String("kind", "candidate", "entity kind: candidate or posting")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: talentmatch delete [flags] <entity-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	components, _ := mustInitialize(*configPath)
	defer components.Close()

	ctx := context.Background()
	var err error
	switch models.EntityKind(*kind) {
	case models.KindCandidate:
		err = components.Engine.RemoveCandidate(ctx, id)
	case models.KindPosting:
		err = components.Engine.RemovePosting(ctx, id)
	default:
		fmt.Printf("Unknown kind %q; use candidate or posting\n", *kind)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted %s: %s\n", *kind, id)
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		resp, err := http.Post(*serverURL+"/api/v1/reindex", "application/json", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Reindex failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var report engine.ReindexReport
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		printReindexReport(&report)
		return
	}

	components, cfg := mustInitialize(*configPath)
	defer components.Close()

	if err := components.Engine.LoadSnapshots(cfg.Storage.CandidateIndexPath, cfg.Storage.PostingIndexPath); err != nil {
		fmt.Fprintf(os.Stderr, "Snapshot load failed: %v\n", err)
	}
	report, err := components.Engine.Reindex(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
		os.Exit(1)
	}
	if err := components.Engine.SaveSnapshots(cfg.Storage.CandidateIndexPath, cfg.Storage.PostingIndexPath); err != nil {
		fmt.Fprintf(os.Stderr, "Snapshot save failed: %v\n", err)
	}
	printReindexReport(report)
}

func printReindexReport(report *engine.ReindexReport) {
	fmt.Printf("candidates_indexed:  %d\n", report.Candidates)
	fmt.Printf("postings_indexed:    %d\n", report.Postings)
	fmt.Printf("skipped:             %d\n", report.Skipped)
	fmt.Printf("candidate_gen:       %d\n", report.CandidateGeneration)
	fmt.Printf("posting_gen:         %d\n", report.PostingGeneration)
	fmt.Printf("duration:            %s\n", report.Duration)
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	EmbeddingProvider   string `json:"embedding_provider,omitempty"`
	EmbeddingDimensions int    `json:"embedding_dimensions,omitempty"`
	DatabasePath        string `json:"database_path,omitempty"`
	CandidateIndexPath  string `json:"candidate_index_path,omitempty"`
	PostingIndexPath    string `json:"posting_index_path,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Candidates         int64                 `json:"candidates"`
	Postings           int64                 `json:"postings"`
	CandidateIndexSize int                   `json:"candidate_index_size"`
	PostingIndexSize   int                   `json:"posting_index_size"`
	UptimeSeconds      int64                 `json:"uptime_seconds"`
	DiskUsageBytes     *int64                `json:"disk_usage_bytes,omitempty"`
	Config             *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		components, cfg := mustInitialize(*configPath)
		defer components.Close()

		stats, err := components.Engine.Stats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Candidates:         stats.Candidates,
			Postings:           stats.Postings,
			CandidateIndexSize: stats.CandidateIndexSize,
			PostingIndexSize:   stats.PostingIndexSize,
			Config: &statusConfigResponse{
				EmbeddingProvider:   cfg.Embedding.Provider,
				EmbeddingDimensions: cfg.Embedding.Dimensions,
				DatabasePath:        cfg.Storage.DatabasePath,
				CandidateIndexPath:  cfg.Storage.CandidateIndexPath,
				PostingIndexPath:    cfg.Storage.PostingIndexPath,
			},
		}
		diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.CandidateIndexPath, cfg.Storage.PostingIndexPath)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("candidates:            %d   # stored candidate profiles\n", status.Candidates)
		fmt.Printf("postings:              %d   # stored job postings\n", status.Postings)
		fmt.Printf("candidate_index_size:  %d   # vectors in candidate index\n", status.CandidateIndexSize)
		fmt.Printf("posting_index_size:    %d   # vectors in posting index\n", status.PostingIndexSize)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:      %d   # database + snapshots on disk\n", *status.DiskUsageBytes)
		}
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			fmt.Printf("embedding_provider:    %s\n", status.Config.EmbeddingProvider)
			if status.Config.EmbeddingDimensions > 0 {
				fmt.Printf("embedding_dims:        %d\n", status.Config.EmbeddingDimensions)
			}
			if status.Config.DatabasePath != "" {
				fmt.Printf("database_path:         %s\n", status.Config.DatabasePath)
			}
			if status.Config.CandidateIndexPath != "" {
				fmt.Printf("candidate_index_path:  %s\n", status.Config.CandidateIndexPath)
			}
			if status.Config.PostingIndexPath != "" {
				fmt.Printf("posting_index_path:    %s\n", status.Config.PostingIndexPath)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runSummarize() {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	sentences := fs.Int("sentences", 3, "number of summary sentences (1-10)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: talentmatch summarize [flags] <candidate-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	var summary *profile.Summary
	var recs []string
	if *serverURL != "" {
		var err error
		summary, recs, err = summaryViaHTTP(*serverURL, id, *sentences)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, _ := mustInitialize(*configPath)
		defer components.Close()

		prof, err := components.Storage.GetCandidate(context.Background(), id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
			os.Exit(1)
		}
		summary, err = profile.Summarize(prof, *sentences)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
			os.Exit(1)
		}
		recs = profile.Recommendations(prof)
	}
	cli.WriteSummary(os.Stdout, id, summary, recs)
}

func summaryViaHTTP(serverURL, id string, sentences int) (*profile.Summary, []string, error) {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/candidates/%s/summary?sentences=%d", serverURL, id, sentences))
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var summaryBody struct {
		Summary *profile.Summary `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summaryBody); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}

	recResp, err := http.Get(fmt.Sprintf("%s/api/v1/candidates/%s/recommendations", serverURL, id))
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer recResp.Body.Close()
	if recResp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(recResp.Body)
		return nil, nil, fmt.Errorf("server returned %d: %s", recResp.StatusCode, string(b))
	}
	var recBody struct {
		Recommendations []string `json:"recommendations"`
	}
	if err := json.NewDecoder(recResp.Body).Decode(&recBody); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}
	return summaryBody.Summary, recBody.Recommendations, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputPath := fs.String("out", "talentmatch-report.xlsx", "output file for the XLSX report")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/analytics/report")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Report failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Report failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		out, err := os.Create(*outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output file: %v\n", err)
			os.Exit(1)
		}
		defer out.Close()
		if _, err := io.Copy(out, resp.Body); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", *outputPath)
		return
	}

	components, _ := mustInitialize(*configPath)
	defer components.Close()

	report, err := components.Reporter.Build(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Report failed: %v\n", err)
		os.Exit(1)
	}
	out, err := os.Create(*outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output file: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := report.WriteXLSX(out); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Report written to %s\n", *outputPath)
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Engine   *engine.Engine
	Reporter *analytics.Reporter
}

func (c *Components) Close() {
	if c.Engine != nil {
		// Engine.Close releases the embedder and storage.
		_ = c.Engine.Close()
		return
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := embedding.New(embedding.Settings{
		Provider:   cfg.Embedding.Provider,
		ModelPath:  cfg.Embedding.ModelPath,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
		OpenAI: embedding.OpenAIConfig{
			APIKey:            cfg.Embedding.OpenAI.APIKey,
			BaseURL:           cfg.Embedding.OpenAI.BaseURL,
			Model:             cfg.Embedding.OpenAI.Model,
			RequestsPerMinute: cfg.Embedding.OpenAI.RequestsPerMinute,
		},
	})
	if err != nil {
		if logger != nil {
			logger.Warn("embedder initialization failed, falling back to mock",
				zap.String("provider", cfg.Embedding.Provider),
				zap.Error(err))
		}
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	scorer, err := scoring.NewScorer(cfg.Matching.Weights)
	if err != nil {
		_ = store.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize scorer: %w", err)
	}

	engOpts := []engine.Option{}
	if logger != nil {
		engOpts = append(engOpts, engine.WithLogger(logger))
	}
	eng, err := engine.NewEngine(store, embedder, scorer, engine.Config{
		Dimensions:         cfg.Embedding.Dimensions,
		EmbedTimeout:       time.Duration(cfg.Matching.EmbedTimeoutSeconds) * time.Second,
		ReindexBatchSize:   cfg.Matching.ReindexBatchSize,
		ReindexConcurrency: cfg.Matching.ReindexConcurrency,
	}, engOpts...)
	if err != nil {
		_ = store.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	return &Components{
		Storage:  store,
		Embedder: embedder,
		Engine:   eng,
		Reporter: analytics.NewReporter(store, 0),
	}, nil
}

// mustInitialize loads config, builds a logger, and initializes components,
// exiting on failure. Used by the direct-storage CLI paths.
func mustInitialize(configPath string) (*Components, *config.Config) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, cfg
}

func printUsage() {
	fmt.Println(`talentmatch - Candidate/job matching engine

Usage:
  talentmatch server [flags]           Start the HTTP server
  talentmatch match [flags] <id>       Match a stored entity against the opposite index
  talentmatch ingest [flags] <file>    Ingest a CV file or directory
  talentmatch delete [flags] <id>      Delete a candidate or posting
  talentmatch reindex [flags]          Rebuild both vector indexes from storage
  talentmatch status [flags]           Show engine/storage/index status
  talentmatch summarize [flags] <id>   Summarize a stored candidate CV
  talentmatch report [flags]           Export the analytics report as XLSX
  talentmatch version                  Show version
  talentmatch help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/talentmatch/config.yaml)
  --debug            Enable debug logging (ingest events, index updates, etc.)

Match Flags:
  --config string      Config file path (for direct storage mode)
  --server string      Server URL (default: http://localhost:8080). Use empty (--server "") to use direct storage when server is not running.
  --kind string        Kind of entities to return: candidate or posting (default: candidate)
  --top-k int          Number of results (default: 10)
  --min-score float    Minimum composite score 0-100 (default: 0)
  --skill-floor        Drop results below the required-skill floor
  --output string      Output format: text or json (default: text)

Ingest Flags:
  --config string    Config file path

Summarize Flags:
  --config string      Config file path (for direct storage mode)
  --server string      Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --sentences int      Number of summary sentences, 1-10 (default: 3)

Reindex/Status/Report Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.

Examples:
  talentmatch server
  talentmatch match -kind candidate job-123
  talentmatch match -kind posting -top-k 5 cv-456
  talentmatch ingest resumes/jane-doe.pdf
  talentmatch reindex
  talentmatch status --output json
  talentmatch report --out q3-report.xlsx`)
}
