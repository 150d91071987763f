package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"cxlint/internal/check"
	"cxlint/internal/complexity"
	"cxlint/internal/errors"
	"cxlint/internal/lint"
)

var rulesFormat string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the enabled rules and their effective settings",
	Long: `Lists every enabled rule with its variant, max, ignore lists and message,
after applying .cxlint.yml.

With --format=toml the variants behind the enabled rules are printed as a weight
file, a starting point for custom weightFiles. Built-in variants weigh some nodes by
context, so their export is flattened and marked approximate = true.

Examples:
  cxlint rules
  cxlint rules --format=json
  cxlint rules --format=toml > weights/custom.toml`,
	Args: cobra.NoArgs,
	Run:  runRules,
}

func init() {
	rulesCmd.Flags().StringVar(&rulesFormat, "format", "human", "Output format (human, json, toml)")
	rootCmd.AddCommand(rulesCmd)
}

// RulesResponseCLI lists the effective rules
type RulesResponseCLI struct {
	Rules    []RuleCLI `json:"rules"`
	Variants []string  `json:"variants"`
}

type RuleCLI struct {
	Name            string   `json:"name"`
	Variant         string   `json:"variant"`
	Max             float64  `json:"max"`
	Message         string   `json:"message"`
	Counted         []string `json:"counted"`
	AllowedMethods  []string `json:"allowedMethods,omitempty"`
	AllowedPatterns []string `json:"allowedPatterns,omitempty"`
}

func runRules(cmd *cobra.Command, args []string) {
	wd := workingDir()
	cfg, err := loadConfig(wd)
	if err != nil {
		fatal(err)
	}
	logger, closeLogs := newLogger(cfg)
	defer closeLogs()

	if _, err := lint.LoadVariants(cfg, wd); err != nil {
		fatal(err)
	}
	checkers, err := lint.Rules(cfg, nil)
	if err != nil {
		fatal(err)
	}
	logger.Debug("Resolved rules", "count", len(checkers))

	var output string
	if OutputFormat(rulesFormat) == FormatTOML {
		output, err = rulesTOML(checkers)
	} else {
		output, err = FormatResponse(buildRulesResponse(checkers), OutputFormat(rulesFormat))
	}
	if err != nil {
		fatal(err)
	}
	fmt.Println(output)
}

func buildRulesResponse(checkers []*check.Checker) *RulesResponseCLI {
	resp := &RulesResponseCLI{Rules: make([]RuleCLI, 0, len(checkers)), Variants: complexity.Names()}
	for _, c := range checkers {
		rule, policy := c.Rule(), c.Policy()
		r := RuleCLI{
			Name:           rule.Name,
			Variant:        rule.Variant.Name(),
			Max:            policy.Max,
			Message:        rule.Message,
			AllowedMethods: policy.IgnoredNames,
		}
		if r.Message == "" {
			r.Message = check.DefaultMessage
		}
		for _, k := range rule.Variant.Counted() {
			r.Counted = append(r.Counted, k.String())
		}
		for _, re := range policy.IgnoredPatterns {
			r.AllowedPatterns = append(r.AllowedPatterns, re.String())
		}
		resp.Rules = append(resp.Rules, r)
	}
	return resp
}

// rulesTOML renders the distinct variants of checkers as a weight file.
func rulesTOML(checkers []*check.Checker) (string, error) {
	seen := map[string]bool{}
	var variants []complexity.Variant
	for _, c := range checkers {
		v := c.Rule().Variant
		if !seen[v.Name()] {
			seen[v.Name()] = true
			variants = append(variants, v)
		}
	}

	var b bytes.Buffer
	if err := complexity.EncodeWeights(&b, variants...); err != nil {
		return "", errors.Wrap(errors.WeightsInvalid, "cannot encode variants", err)
	}
	return b.String(), nil
}
