package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// TodoFileName is the file written by --auto-gen-config.
const TodoFileName = ".cxlint_todo.yml"

// Todo accumulates, per rule, the smallest max that would accept every
// current offense.
type Todo struct {
	mu    sync.Mutex
	rules map[string]*todoEntry
}

type todoEntry struct {
	max      int
	offenses int
}

// NewTodo creates an empty todo.
func NewTodo() *Todo {
	return &Todo{rules: make(map[string]*todoEntry)}
}

// Add records an offense of rule whose suggested max is suggested.
func (t *Todo) Add(rule string, suggested int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.rules[rule]
	if !ok {
		e = &todoEntry{}
		t.rules[rule] = e
	}
	e.offenses++
	if suggested > e.max {
		e.max = suggested
	}
}

// Max returns the recorded max for rule.
func (t *Todo) Max(rule string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.rules[rule]
	if !ok {
		return 0, false
	}
	return e.max, true
}

// Len returns the number of rules with offenses.
func (t *Todo) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rules)
}

// Marshal renders the todo as a YAML configuration that inherits cleanly
// into .cxlint.yml.
func (t *Todo) Marshal(generated time.Time) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.rules))
	for name := range t.rules {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range names {
		e := t.rules[name]
		body := &yaml.Node{Kind: yaml.MappingNode}
		body.Content = append(body.Content,
			scalar("max"),
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(e.max)},
		)
		key := scalar(name)
		key.HeadComment = fmt.Sprintf("Offense count: %d", e.offenses)
		rules.Content = append(rules.Content, key, body)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	rulesKey := scalar("rules")
	root.Content = append(root.Content, rulesKey, rules)

	doc := &yaml.Node{
		Kind: yaml.DocumentNode,
		HeadComment: "This configuration was generated by `cxlint check --auto-gen-config`\n" +
			"on " + generated.UTC().Format(time.RFC3339) + ".\n" +
			"Remove entries as the offenses are fixed, one rule at a time.",
		Content: []*yaml.Node{root},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the todo to path.
func (t *Todo) WriteFile(path string, generated time.Time) error {
	data, err := t.Marshal(generated)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
