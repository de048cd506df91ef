package query

import "strings"

// Builder accumulates WHERE predicates with their bound arguments, keeping
// clause text and parameters in the same order.
type Builder struct {
	clauses []string
	args    []any
}

// Where adds a predicate. The number of "?" in clause must equal len(args).
func (b *Builder) Where(clause string, args ...any) *Builder {
	b.clauses = append(b.clauses, clause)
	b.args = append(b.args, args...)
	return b
}

// In adds "column IN (...)". An empty list adds nothing.
func (b *Builder) In(column string, values []string) *Builder {
	if len(values) == 0 {
		return b
	}
	return b.Where(column+" IN ("+placeholders(len(values))+")", toArgs(values)...)
}

// NotIn adds "(column IS NULL OR column NOT IN (...))" so NULL values are kept.
// An empty list adds nothing.
func (b *Builder) NotIn(column string, values []string) *Builder {
	if len(values) == 0 {
		return b
	}
	return b.Where("("+column+" IS NULL OR "+column+" NOT IN ("+placeholders(len(values))+"))", toArgs(values)...)
}

// Clause returns the predicates joined by AND, or "1=1" when there are none
func (b *Builder) Clause() string {
	if len(b.clauses) == 0 {
		return "1=1"
	}
	return strings.Join(b.clauses, " AND ")
}

// Args returns the bound arguments in clause order
func (b *Builder) Args() []any {
	return b.args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
