package complexity

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"

	"cxlint/internal/ast"
)

// weightsFile is the on-disk layout of a weight table file:
//
//	[[variant]]
//	name = "branchy"
//	counted = ["if", "and", "or", "send"]
//
//	[variant.weights]
//	if = 1.0
//	and = 1.0
//	or = 1.0
//	send = 0.2
type weightsFile struct {
	Variants []weightsEntry `toml:"variant"`
}

type weightsEntry struct {
	Name        string             `toml:"name"`
	Approximate bool               `toml:"approximate,omitempty" comment:"flattened from a built-in variant: context-dependent weights became 1"`
	Counted     []string           `toml:"counted,omitempty"`
	Weights     map[string]float64 `toml:"weights"`
}

// LoadWeights reads weight tables from a TOML file.
func LoadWeights(path string) ([]*WeightTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open weight file: %w", err)
	}
	defer f.Close()

	tables, err := DecodeWeights(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tables, nil
}

// DecodeWeights parses weight tables from TOML. Unknown keys, unknown node
// kinds and negative weights are rejected.
func DecodeWeights(r io.Reader) ([]*WeightTable, error) {
	var file weightsFile
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("invalid weight file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in weight file: %s", strings.Join(keys, ", "))
	}

	tables := make([]*WeightTable, 0, len(file.Variants))
	seen := make(map[string]bool, len(file.Variants))
	for i, entry := range file.Variants {
		if entry.Name == "" {
			return nil, fmt.Errorf("variant #%d has no name", i+1)
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("variant %q defined twice", entry.Name)
		}
		seen[entry.Name] = true

		wt, err := NewWeightTable(entry.Name, entry.Weights)
		if err != nil {
			return nil, err
		}
		wt.Approximate = entry.Approximate
		for _, name := range entry.Counted {
			kind, ok := ast.ParseKind(name)
			if !ok {
				return nil, fmt.Errorf("weight table %q: unknown counted kind %q", entry.Name, name)
			}
			wt.CountedKinds = append(wt.CountedKinds, kind)
		}
		tables = append(tables, wt)
	}
	return tables, nil
}

// EncodeWeights writes variants as a weight file. Variants other than weight
// tables are flattened to a weight of 1 for every counted kind and marked
// approximate: the built-ins weigh some nodes by context (an if with an else,
// a case by its branches, a block by its method), which a table cannot hold.
func EncodeWeights(w io.Writer, variants ...Variant) error {
	var file weightsFile
	for _, v := range variants {
		file.Variants = append(file.Variants, entryFor(v))
	}

	data, err := gotoml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func entryFor(v Variant) weightsEntry {
	entry := weightsEntry{Name: v.Name(), Weights: map[string]float64{}}

	if wt, ok := v.(*WeightTable); ok {
		entry.Approximate = wt.Approximate
		for k, weight := range wt.Weights {
			entry.Weights[k.String()] = weight
		}
		for _, k := range wt.CountedKinds {
			entry.Counted = append(entry.Counted, k.String())
		}
		return entry
	}

	entry.Approximate = true
	for _, k := range v.Counted() {
		entry.Weights[k.String()] = 1
		entry.Counted = append(entry.Counted, k.String())
	}
	sort.Strings(entry.Counted)
	return entry
}
