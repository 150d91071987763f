package lint

import (
	"bytes"
	"fmt"
	"strings"

	"cxlint/internal/check"
	"cxlint/internal/complexity"
	"cxlint/internal/config"
	"cxlint/internal/errors"
)

// LoadVariants registers the weight tables named by cfg.WeightFiles and
// returns them in file order.
func LoadVariants(cfg *config.Config, root string) ([]*complexity.WeightTable, error) {
	var out []*complexity.WeightTable
	for _, file := range cfg.WeightFiles {
		tables, err := complexity.LoadWeights(cfg.Resolve(root, file))
		if err != nil {
			return nil, errors.Wrap(errors.WeightsInvalid, "cannot load weight file "+file, err)
		}
		for _, t := range tables {
			complexity.Register(t)
		}
		out = append(out, tables...)
	}
	return out, nil
}

// Rules resolves the enabled rules from cfg: the built-in rules with their
// configured overrides, then every configured rule naming a variant. When
// only is non-empty, rules not named in it (case-insensitively) are dropped.
// Weight files must be loaded first.
func Rules(cfg *config.Config, only []string) ([]*check.Checker, error) {
	selected := func(name string) bool {
		if len(only) == 0 {
			return true
		}
		for _, o := range only {
			if strings.EqualFold(o, name) {
				return true
			}
		}
		return false
	}

	var out []*check.Checker
	builtin := map[string]bool{}
	for _, rule := range check.BuiltinRules() {
		key := strings.ToLower(rule.Name)
		builtin[key] = true

		rc, _ := cfg.Rule(rule.Name)
		if !rc.IsEnabled() || !selected(rule.Name) {
			continue
		}
		if rc.Message != "" {
			rule.Message = rc.Message
		}
		if rc.Variant != "" {
			v, ok := complexity.Lookup(rc.Variant)
			if !ok {
				return nil, unknownVariant(key, rc.Variant)
			}
			rule.Variant = v
		}
		c, err := checkerFor(rule, rc, key)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	for _, key := range cfg.CustomRules() {
		if builtin[key] {
			continue
		}
		rc := cfg.Rules[key]
		name := rc.Name
		if name == "" {
			name = key
		}
		if !rc.IsEnabled() || !selected(name) {
			continue
		}
		v, ok := complexity.Lookup(rc.Variant)
		if !ok {
			return nil, unknownVariant(key, rc.Variant)
		}
		if rc.Max == nil {
			return nil, errors.NewCxError(errors.ConfigInvalid,
				fmt.Sprintf("rule %s needs a max", name),
				&config.ConfigError{Field: "rules." + key + ".max", Message: "required for configured rules"},
				errors.GetSuggestedFixes(errors.ConfigInvalid))
		}
		c, err := checkerFor(&check.Rule{Name: name, Variant: v, Message: rc.Message}, rc, key)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func checkerFor(rule *check.Rule, rc config.RuleConfig, key string) (*check.Checker, error) {
	patterns, err := rc.Patterns()
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "rules."+key+".allowedPatterns",
			&config.ConfigError{Field: "rules." + key + ".allowedPatterns", Message: err.Error()})
	}
	return check.New(rule, check.Policy{
		Max:             rc.MaxOr(rule.DefaultMax),
		IgnoredNames:    rc.AllowedMethods,
		IgnoredPatterns: patterns,
	}), nil
}

func unknownVariant(key, variant string) error {
	return errors.NewCxError(errors.ConfigInvalid,
		fmt.Sprintf("rule %s uses unknown variant %q (known: %s)", key, variant, strings.Join(complexity.Names(), ", ")),
		&config.ConfigError{Field: "rules." + key + ".variant", Message: "unknown variant " + variant},
		errors.GetSuggestedFixes(errors.ConfigInvalid))
}

// Fingerprint identifies everything about a rule set that can change its
// output: names, thresholds, messages, ignore lists and the variant weights.
func Fingerprint(checkers []*check.Checker) string {
	var b bytes.Buffer
	for _, c := range checkers {
		rule, policy := c.Rule(), c.Policy()
		fmt.Fprintf(&b, "%s\x00%g\x00%s\x00%s\x00", rule.Name, policy.Max, rule.Message, strings.Join(policy.IgnoredNames, ","))
		for _, re := range policy.IgnoredPatterns {
			b.WriteString(re.String())
			b.WriteByte(0)
		}
		if err := complexity.EncodeWeights(&b, rule.Variant); err != nil {
			// Variants that cannot be rendered are identified by name alone.
			b.WriteString(rule.Variant.Name())
		}
	}
	return b.String()
}
