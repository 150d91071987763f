package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cxlint/internal/cache"
	"cxlint/internal/errors"
)

var (
	cacheFormat    string
	cacheOlderThan time.Duration
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clean the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show result cache size and age",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCache(func(ctx context.Context, c *cache.Cache) (int64, error) { return 0, nil })
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached result",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCache(func(ctx context.Context, c *cache.Cache) (int64, error) { return c.Clear(ctx) })
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cached results not used recently",
	Long: `Removes cached results that were not read or written within --older-than.

Examples:
  cxlint cache prune
  cxlint cache prune --older-than=72h`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCache(func(ctx context.Context, c *cache.Cache) (int64, error) {
			return c.Prune(ctx, time.Now().Add(-cacheOlderThan))
		})
	},
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheFormat, "format", "human", "Output format (human, json)")
	cachePruneCmd.Flags().DurationVar(&cacheOlderThan, "older-than", 30*24*time.Hour, "Age of the entries to remove")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

// CacheStatsResponseCLI describes the cache after a cache command
type CacheStatsResponseCLI struct {
	Path        string    `json:"path"`
	Entries     int64     `json:"entries"`
	Files       int64     `json:"files"`
	RawBytes    int64     `json:"rawBytes"`
	StoredBytes int64     `json:"storedBytes"`
	Ratio       float64   `json:"ratio"`
	Oldest      time.Time `json:"oldest,omitzero"`
	Removed     int64     `json:"removed,omitempty"`
}

func runCache(op func(context.Context, *cache.Cache) (int64, error)) {
	wd := workingDir()
	cfg, err := loadConfig(wd)
	if err != nil {
		fatal(err)
	}
	logger, closeLogs := newLogger(cfg)
	defer closeLogs()

	path := cfg.Resolve(wd, cfg.Cache.Path)
	c, err := cache.Open(path, logger)
	if err != nil {
		fatal(errors.Wrap(errors.CacheUnavailable, "cannot open cache at "+path, err))
	}
	defer c.Close()

	ctx := context.Background()
	removed, err := op(ctx, c)
	if err != nil {
		fatal(errors.Wrap(errors.CacheUnavailable, "cache operation failed", err))
	}
	st, err := c.Stats(ctx)
	if err != nil {
		fatal(errors.Wrap(errors.CacheUnavailable, "cannot read cache stats", err))
	}

	output, err := FormatResponse(cacheStatsResponse(st, removed), OutputFormat(cacheFormat))
	if err != nil {
		fatal(err)
	}
	fmt.Println(output)
}

func cacheStatsResponse(st cache.Stats, removed int64) *CacheStatsResponseCLI {
	return &CacheStatsResponseCLI{
		Path:        st.Path,
		Entries:     st.Entries,
		Files:       st.Files,
		RawBytes:    st.RawBytes,
		StoredBytes: st.StoredBytes,
		Ratio:       st.Ratio(),
		Oldest:      st.Oldest,
		Removed:     removed,
	}
}
