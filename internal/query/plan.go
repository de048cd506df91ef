package query

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/dshills/locate/internal/storage"
)

const (
	// OverFetchFactor multiplies the limit when results are post-filtered
	OverFetchFactor = 10
	// MaxCandidates caps the number of rows fetched for post-filtering
	MaxCandidates = 10000
)

// Request is a raw search as supplied by a caller
type Request struct {
	Query         string
	UseRegex      bool
	CaseSensitive bool
	// MatchPath matches terms and patterns against the full path instead of the name
	MatchPath bool
	Filters
}

// Strategy identifies how a Plan retrieves candidates
type Strategy int

const (
	StrategyEmpty Strategy = iota
	StrategyFTS
	StrategyScan
	StrategyRegex
)

func (s Strategy) String() string {
	switch s {
	case StrategyFTS:
		return "fts"
	case StrategyScan:
		return "scan"
	case StrategyRegex:
		return "regex"
	default:
		return "empty"
	}
}

// Plan is a compiled request: the SQL to run and what to check afterwards
type Plan struct {
	Strategy Strategy
	SQL      string
	Args     []any

	Terms         Terms
	Pattern       *regexp.Regexp
	CaseSensitive bool
	MatchPath     bool
	Filters       Filters

	// Limit is the number of results the caller wants
	Limit int
	// PostFilter is set when rows must be checked in memory before truncation
	PostFilter bool
}

// Target returns the text a record is matched against
func (p *Plan) Target(rec storage.FileRecord) string {
	if p.MatchPath {
		return rec.Path
	}
	return rec.Name
}

// Keep reports whether rec survives the in-memory checks the SQL could not
// express exactly.
func (p *Plan) Keep(rec storage.FileRecord) bool {
	target := p.Target(rec)
	if p.Pattern != nil && !p.Pattern.MatchString(target) {
		return false
	}
	if p.Strategy != StrategyRegex && p.CaseSensitive && !p.Terms.ContainsAll(target, true) {
		return false
	}
	if p.Strategy == StrategyScan && p.MatchPath && !p.Terms.ContainsAll(target, p.CaseSensitive) {
		return false
	}
	if !p.Terms.MatchBoolean(target, p.CaseSensitive) {
		return false
	}
	return p.Filters.InScope(rec.Path)
}

// Compile validates req and builds its retrieval plan. Pattern errors are
// returned here, before any store access.
func Compile(req Request, limit int) (*Plan, error) {
	terms := ParseQuery(req.Query)
	plan := &Plan{
		Terms:         terms,
		CaseSensitive: req.CaseSensitive,
		MatchPath:     req.MatchPath,
		Filters:       req.Filters,
		Limit:         limit,
	}

	if req.UseRegex {
		pattern, err := CompilePattern(terms.Cleaned(), req.CaseSensitive)
		if err != nil {
			return nil, err
		}
		plan.Pattern = pattern
		plan.Strategy = StrategyRegex
	}

	if req.Filters.matchesNothing() {
		plan.Strategy = StrategyEmpty
		return plan, nil
	}

	if !req.UseRegex {
		expr := ""
		if !req.MatchPath {
			expr = BuildMatchExpression(terms.Optional)
		}
		switch {
		case expr != "":
			plan.Strategy = StrategyFTS
			plan.SQL, plan.Args = plan.ftsSQL(expr)
		case len(terms.Optional) > 0 && req.MatchPath:
			plan.Strategy = StrategyScan
		case terms.HasBoolean():
			plan.Strategy = StrategyScan
		default:
			slog.Warn("search has no usable terms", slog.String("query", req.Query))
			plan.Strategy = StrategyEmpty
			return plan, nil
		}
	}

	if plan.Strategy != StrategyFTS {
		plan.SQL, plan.Args = plan.scanSQL()
	}
	return plan, nil
}

// fetchLimit is the number of rows requested from the store
func (p *Plan) fetchLimit() int {
	if p.PostFilter {
		return min(p.Limit*OverFetchFactor, MaxCandidates)
	}
	return p.Limit
}

func (p *Plan) ftsSQL(expr string) (string, []any) {
	p.PostFilter = p.Terms.HasBoolean() || p.CaseSensitive || p.Filters.scope() != ""

	b := &Builder{}
	b.Where("files_fts MATCH ?", expr)
	p.Filters.apply(b)
	p.likePrefilters(b)

	args := append(b.Args(), p.fetchLimit())
	return `SELECT ` + storage.FileColumns + `
		FROM files_fts JOIN files f ON f.id = files_fts.rowid
		WHERE ` + b.Clause() + `
		ORDER BY bm25(files_fts), f.name
		LIMIT ?`, args
}

func (p *Plan) scanSQL() (string, []any) {
	p.PostFilter = true

	b := &Builder{}
	p.Filters.apply(b)
	p.likePrefilters(b)
	if p.Strategy == StrategyScan && p.MatchPath {
		for _, term := range p.Terms.Optional {
			if isASCII(term) {
				b.Where(`f.path LIKE ? ESCAPE '\'`, "%"+EscapeLike(term)+"%")
			}
		}
	}

	args := append(b.Args(), p.fetchLimit())
	return `SELECT ` + storage.FileColumns + `
		FROM files f
		WHERE ` + b.Clause() + `
		ORDER BY f.name
		LIMIT ?`, args
}

// likePrefilters narrows candidates by boolean terms. The post-filter stays
// authoritative: these predicates only ever remove rows it would also remove.
func (p *Plan) likePrefilters(b *Builder) {
	for _, term := range p.Terms.Required {
		p.likeTerm(b, term, "LIKE")
	}
	if p.CaseSensitive {
		return
	}
	for _, term := range p.Terms.Excluded {
		p.likeTerm(b, term, "NOT LIKE")
	}
}

func (p *Plan) likeTerm(b *Builder, term, op string) {
	if p.MatchPath {
		// LIKE folds ASCII only, so a non-ASCII term cannot be prefiltered on path
		if isASCII(term) {
			b.Where(`f.path `+op+` ? ESCAPE '\'`, "%"+EscapeLike(term)+"%")
		}
		return
	}
	b.Where(`f.name_lower `+op+` ? ESCAPE '\'`, "%"+EscapeLike(strings.ToLower(term))+"%")
}
