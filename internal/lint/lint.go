// Package lint runs the complexity rules over Ruby files: it parses each
// file, applies every configured checker and caches the outcome by content.
package lint

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"cxlint/internal/ast"
	"cxlint/internal/cache"
	"cxlint/internal/check"
	"cxlint/internal/complexity"
	"cxlint/internal/errors"
	"cxlint/internal/rubyparse"
	"cxlint/internal/slogutil"
)

// Parser turns source into a syntax tree. A nil tree means an empty file.
type Parser interface {
	Parse(ctx context.Context, source []byte) (*ast.Node, error)
}

// Offense is one reported violation, flattened for output and caching.
type Offense struct {
	Rule         string            `json:"rule"`
	Method       string            `json:"method"`
	Kind         string            `json:"kind"`
	Line         int               `json:"line"`
	Column       int               `json:"column"`
	EndLine      int               `json:"endLine"`
	Score        float64           `json:"score"`
	Max          float64           `json:"max"`
	Vector       complexity.Vector `json:"vector"`
	Message      string            `json:"message"`
	SuggestedMax int               `json:"suggestedMax"`
}

func offenseFrom(v check.Violation) Offense {
	return Offense{
		Rule:         v.Rule,
		Method:       v.Name,
		Kind:         v.Kind.String(),
		Line:         v.Loc.Line,
		Column:       v.Loc.Column,
		EndLine:      v.Loc.EndLine,
		Score:        v.Score,
		Max:          v.Max,
		Vector:       v.Vector,
		Message:      v.Message,
		SuggestedMax: v.SuggestedMax(),
	}
}

// FileResult is the outcome of linting one file.
type FileResult struct {
	Path       string    `json:"path"`
	Offenses   []Offense `json:"offenses"`
	Candidates int       `json:"candidates"`
	Cached     bool      `json:"cached"`
	Error      error     `json:"-"`
}

// cachedResult is the cache payload for one file.
type cachedResult struct {
	Offenses   []Offense `json:"offenses"`
	Candidates int       `json:"candidates"`
}

// Options configures a Linter.
type Options struct {
	Checkers []*check.Checker

	// NewParser creates parsers for workers. Defaults to the tree-sitter parser.
	NewParser func() Parser

	// Cache is optional
	Cache *cache.Cache

	Logger *slog.Logger
}

// Linter applies a fixed set of checkers to files.
// It is safe for concurrent use.
type Linter struct {
	checkers    []*check.Checker
	parsers     sync.Pool
	cache       *cache.Cache
	logger      *slog.Logger
	fingerprint string
}

// New creates a linter.
func New(opts Options) *Linter {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	newParser := opts.NewParser
	if newParser == nil {
		newParser = func() Parser { return rubyparse.NewParser() }
	}

	l := &Linter{
		checkers:    opts.Checkers,
		cache:       opts.Cache,
		logger:      logger,
		fingerprint: Fingerprint(opts.Checkers),
	}
	l.parsers.New = func() any { return newParser() }
	return l
}

// Checkers returns the checkers the linter applies, in order.
func (l *Linter) Checkers() []*check.Checker { return l.checkers }

// LintTree applies every checker to root. Offenses are grouped by checker
// and ordered by position within each group.
func (l *Linter) LintTree(path string, root *ast.Node) []Offense {
	var out []Offense
	for _, c := range l.checkers {
		c.Check(root, check.ReporterFunc(func(v check.Violation) {
			out = append(out, offenseFrom(v))
		}))
	}
	return out
}

// LintSource lints source as if read from path.
func (l *Linter) LintSource(ctx context.Context, path string, source []byte) FileResult {
	res := FileResult{Path: path}

	var key string
	if l.cache != nil {
		key = cache.Key(l.fingerprint, path, source)
		if cr, ok := l.lookup(ctx, key); ok {
			res.Offenses = cr.Offenses
			res.Candidates = cr.Candidates
			res.Cached = true
			return res
		}
	}

	p := l.parsers.Get().(Parser)
	root, err := p.Parse(ctx, source)
	l.parsers.Put(p)
	if err != nil {
		var syntax *rubyparse.SyntaxError
		switch {
		case stderrors.Is(err, rubyparse.ErrNoCGO):
			res.Error = errors.NewCxError(errors.ParseFailed, "Ruby parser unavailable in this build", err, nil)
		case stderrors.As(err, &syntax):
			res.Error = errors.Wrap(errors.ParseFailed, fmt.Sprintf("%s: %v", path, syntax), err).
				WithDetails(map[string]int{"line": syntax.Line, "column": syntax.Column})
		default:
			res.Error = errors.Wrap(errors.ParseFailed, path, err)
		}
		l.logger.Debug("Parse failed", "path", path, "error", err)
		return res
	}

	res.Offenses = l.LintTree(path, root)
	res.Candidates = len(check.Discover(root))
	l.logger.Debug("Linted file", "path", path, "candidates", res.Candidates, "offenses", len(res.Offenses))

	if l.cache != nil {
		l.store(ctx, key, res)
	}
	return res
}

func (l *Linter) lookup(ctx context.Context, key string) (cachedResult, bool) {
	var cr cachedResult
	payload, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.Debug("Cache read failed", "error", err)
		return cr, false
	}
	if !ok {
		return cr, false
	}
	if err := json.Unmarshal(payload, &cr); err != nil {
		l.logger.Debug("Ignoring undecodable cache entry", "error", err)
		return cr, false
	}
	return cr, true
}

func (l *Linter) store(ctx context.Context, key string, res FileResult) {
	payload, err := json.Marshal(cachedResult{Offenses: res.Offenses, Candidates: res.Candidates})
	if err != nil {
		l.logger.Debug("Cache encode failed", "path", res.Path, "error", err)
		return
	}
	if err := l.cache.Put(ctx, key, res.Path, payload); err != nil {
		l.logger.Debug("Cache write failed", "path", res.Path, "error", err)
	}
}

// LintFile reads and lints the file at path.
func (l *Linter) LintFile(ctx context.Context, path string) FileResult {
	source, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Error: errors.Wrap(errors.UnsupportedFile, "cannot read "+path, err)}
	}
	return l.LintSource(ctx, path, source)
}

// LintFiles lints paths with up to jobs files in flight. Results are in the
// order of paths. The error is non-nil only when ctx is cancelled; per-file
// failures are reported in FileResult.Error.
func (l *Linter) LintFiles(ctx context.Context, paths []string, jobs int) ([]FileResult, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.LintFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
