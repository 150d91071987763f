package main

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cxlint/internal/config"
	"cxlint/internal/errors"
	"cxlint/internal/slogutil"
	"cxlint/internal/version"
)

// Exit codes
const (
	exitClean    = 0
	exitOffenses = 1
	exitError    = 2
)

var (
	// configFlag is the CLI --config flag value
	configFlag  string
	verboseFlag int
	quietFlag   bool
	logFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "cxlint",
	Short: "cxlint - method complexity linter for Ruby",
	Long: `cxlint scores every method definition in Ruby sources (def, def self.x and
define_method blocks) and reports the ones whose cyclomatic or perceived
complexity exceeds the configured maximum.`,
	Version: version.Info(),
}

func init() {
	rootCmd.SetVersionTemplate("cxlint version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"Configuration file (default: .cxlint.yml in the current directory)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logs")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Also write logs to this file")
}

// loadConfig resolves the configuration: --config first, then .cxlint.yml
// in root, then the defaults. Inherited files named in skip are ignored.
func loadConfig(root string, skip ...string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadFileSkipping(configFlag, skip...)
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(errors.ConfigNotFound, "no configuration at "+configFlag, err)
		}
	} else {
		cfg, err = config.LoadConfigSkipping(root, skip...)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "cannot load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "invalid configuration", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging section and the
// verbosity flags, which take precedence over the configured level.
func newLogger(cfg *config.Config) (*slog.Logger, func()) {
	level, _ := slogutil.ParseLevel(cfg.Logging.Level) // checked by Validate
	if verboseFlag > 0 || quietFlag {
		level = slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
	}

	file := logFileFlag
	if file == "" {
		file = cfg.Resolve(workingDir(), cfg.Logging.File)
	}

	factory := slogutil.NewLoggerFactory(os.Stderr, slogutil.Options{
		Level:      level,
		FileLevel:  slog.LevelDebug,
		Format:     cfg.Logging.Format,
		File:       file,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	logger, err := factory.Logger()
	if err != nil {
		logger.Warn("Cannot open log file", "path", file, "error", err)
	}
	return logger, func() { factory.Close() }
}

// workingDir returns the directory commands resolve relative paths against.
func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		fatal(errors.Wrap(errors.InternalError, "cannot determine working directory", err))
	}
	return wd
}

// fatal reports err with its suggested fixes and exits.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var cx *errors.CxError
	if stderrors.As(err, &cx) {
		for _, fix := range cx.SuggestedFixes {
			switch {
			case fix.Command != "":
				fmt.Fprintf(os.Stderr, "  Try: %s (%s)\n", fix.Command, fix.Description)
			case fix.Description != "":
				fmt.Fprintf(os.Stderr, "  Hint: %s\n", fix.Description)
			}
		}
	}
	os.Exit(exitError)
}
