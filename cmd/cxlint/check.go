package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cxlint/internal/cache"
	"cxlint/internal/config"
	"cxlint/internal/errors"
	"cxlint/internal/lint"
	"cxlint/internal/paths"
	"cxlint/internal/version"
)

var (
	checkFormat        string
	checkOnly          []string
	checkAutoGenConfig bool
	checkNoCache       bool
	checkJobs          int
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Report methods whose complexity exceeds the configured maximum",
	Long: `Scores every def, def self.x and define_method block in the given files and
directories (default: the current directory) and reports the ones above their
rule's max.

Exit status is 0 when nothing was reported, 1 when offenses or unparseable
files were found, and 2 on configuration or runtime errors.

Examples:
  cxlint check
  cxlint check app lib --format=json
  cxlint check --only Metrics/PerceivedComplexity app/models
  cxlint check --auto-gen-config`,
	Run: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "human", "Output format (human, json)")
	checkCmd.Flags().StringSliceVar(&checkOnly, "only", nil, "Run only the named rules")
	checkCmd.Flags().BoolVar(&checkAutoGenConfig, "auto-gen-config", false,
		"Write "+config.TodoFileName+" with maxima that accept every current offense")
	checkCmd.Flags().BoolVar(&checkNoCache, "no-cache", false, "Do not read or write the result cache")
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", 0, "Files linted in parallel (default: number of CPUs)")
	rootCmd.AddCommand(checkCmd)
}

// CheckResponseCLI is the report of one check run
type CheckResponseCLI struct {
	RunID      string          `json:"runId"`
	Version    string          `json:"version"`
	Files      []FileReportCLI `json:"files"`
	Summary    CheckSummaryCLI `json:"summary"`
	DurationMs int64           `json:"durationMs"`
	TodoFile   string          `json:"todoFile,omitempty"`
}

type FileReportCLI struct {
	Path     string         `json:"path"`
	Offenses []lint.Offense `json:"offenses"`
	Cached   bool           `json:"cached,omitempty"`
	Error    *FileErrorCLI  `json:"error,omitempty"`
}

type FileErrorCLI struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

type CheckSummaryCLI struct {
	Inspected  int            `json:"inspected"`
	Candidates int            `json:"candidates"`
	Offenses   int            `json:"offenses"`
	Cached     int            `json:"cached"`
	Errors     int            `json:"errors"`
	ByRule     map[string]int `json:"byRule,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) {
	if code := executeCheck(args); code != exitClean {
		os.Exit(code)
	}
}

// executeCheck runs a check and returns the exit status.
func executeCheck(args []string) int {
	start := time.Now()
	wd := workingDir()

	var skip []string
	if checkAutoGenConfig {
		skip = append(skip, config.TodoFileName)
	}
	cfg, err := loadConfig(wd, skip...)
	if err != nil {
		fatal(err)
	}
	logger, closeLogs := newLogger(cfg)
	defer closeLogs()

	if checkFormat != string(FormatHuman) && checkFormat != string(FormatJSON) {
		fatal(fmt.Errorf("unsupported format: %s", checkFormat))
	}

	if _, err := lint.LoadVariants(cfg, wd); err != nil {
		fatal(err)
	}
	checkers, err := lint.Rules(cfg, checkOnly)
	if err != nil {
		fatal(err)
	}
	if len(checkers) == 0 {
		logger.Warn("No rules enabled", "only", checkOnly)
	}

	var resultCache *cache.Cache
	if cfg.Cache.Enabled && !checkNoCache {
		resultCache = openCache(cfg, wd, logger)
		if resultCache != nil {
			defer resultCache.Close()
		}
	}

	targets := args
	if len(targets) == 0 {
		targets = []string{"."}
	}
	files, err := lint.CollectFiles(targets, cfg.Exclude)
	if err != nil {
		fatal(errors.Wrap(errors.UnsupportedFile, "cannot collect files", err))
	}
	logger.Info("Linting", "files", len(files), "rules", len(checkers), "cache", resultCache != nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	linter := lint.New(lint.Options{Checkers: checkers, Cache: resultCache, Logger: logger})
	results, err := linter.LintFiles(ctx, files, checkJobs)
	if err != nil {
		fatal(errors.Wrap(errors.InternalError, "lint interrupted", err))
	}

	resp := buildCheckResponse(wd, results)
	if checkAutoGenConfig {
		todoPath, err := writeTodo(cfg, wd, results, logger)
		if err != nil {
			fatal(err)
		}
		resp.TodoFile = todoPath
	}
	resp.DurationMs = time.Since(start).Milliseconds()

	output, err := FormatResponse(resp, OutputFormat(checkFormat))
	if err != nil {
		fatal(err)
	}
	fmt.Print(output)
	if checkFormat == string(FormatJSON) {
		fmt.Println()
	}

	logger.Debug("Check completed",
		"runId", resp.RunID,
		"inspected", resp.Summary.Inspected,
		"offenses", resp.Summary.Offenses,
		"duration", resp.DurationMs,
	)

	if !checkAutoGenConfig && (resp.Summary.Offenses > 0 || resp.Summary.Errors > 0) {
		return exitOffenses
	}
	return exitClean
}

// openCache opens the configured cache. A cache that cannot be opened is
// logged and skipped; linting proceeds without it.
func openCache(cfg *config.Config, wd string, logger *slog.Logger) *cache.Cache {
	path := cfg.Resolve(wd, cfg.Cache.Path)
	c, err := cache.Open(path, logger)
	if err != nil {
		logger.Warn("Result cache unavailable", "error", errors.Wrap(errors.CacheUnavailable, path, err))
		return nil
	}
	return c
}

// buildCheckResponse summarizes results, reporting paths relative to root.
func buildCheckResponse(root string, results []lint.FileResult) *CheckResponseCLI {
	resp := &CheckResponseCLI{
		RunID:   uuid.New().String(),
		Version: version.Version,
		Files:   make([]FileReportCLI, 0, len(results)),
		Summary: CheckSummaryCLI{ByRule: map[string]int{}},
	}

	for _, r := range results {
		report := FileReportCLI{Path: paths.Display(r.Path, root), Offenses: r.Offenses, Cached: r.Cached}
		if report.Offenses == nil {
			report.Offenses = []lint.Offense{}
		}
		if r.Error != nil {
			report.Error = &FileErrorCLI{Code: errors.CodeOf(r.Error), Message: r.Error.Error()}
			resp.Summary.Errors++
		}

		resp.Summary.Inspected++
		resp.Summary.Candidates += r.Candidates
		resp.Summary.Offenses += len(r.Offenses)
		if r.Cached {
			resp.Summary.Cached++
		}
		for _, o := range r.Offenses {
			resp.Summary.ByRule[o.Rule]++
		}
		resp.Files = append(resp.Files, report)
	}
	return resp
}

// writeTodo records the suggested max of every offense in the todo file
// next to the configuration and makes sure the configuration inherits it.
func writeTodo(cfg *config.Config, wd string, results []lint.FileResult, logger *slog.Logger) (string, error) {
	todo := config.NewTodo()
	for _, r := range results {
		for _, o := range r.Offenses {
			todo.Add(o.Rule, o.SuggestedMax)
		}
	}

	dir := wd
	if cfg.Path != "" {
		dir = filepath.Dir(cfg.Path)
	}
	todoPath := filepath.Join(dir, config.TodoFileName)
	if err := todo.WriteFile(todoPath, time.Now()); err != nil {
		return "", errors.Wrap(errors.InternalError, "cannot write "+todoPath, err)
	}
	logger.Info("Wrote todo configuration", "path", todoPath, "rules", todo.Len())

	if cfg.Path == "" {
		cfgPath := filepath.Join(dir, config.FileName)
		content := "inheritFrom:\n  - " + config.TodoFileName + "\n"
		if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
			return "", errors.Wrap(errors.InternalError, "cannot write "+cfgPath, err)
		}
	} else if !inherits(cfg, config.TodoFileName) {
		logger.Warn("Add the todo file to inheritFrom to apply it", "config", cfg.Path, "todo", config.TodoFileName)
	}
	return todoPath, nil
}

func inherits(cfg *config.Config, name string) bool {
	for _, p := range cfg.InheritFrom {
		if filepath.Base(p) == name {
			return true
		}
	}
	return false
}
