// Package query turns raw search text and filter selections into SQL plans
// against the file index.
//
// # Query Syntax
//
// Whitespace separates terms. A term prefixed with "+" is required and one
// prefixed with "-" is excluded; a lone "+" or "-" is an ordinary term.
// Everything else is optional and drives full-text (or regex) matching:
//
//	+invoice -draft 2024
//
// finds names matching "2024" that contain "invoice" and do not contain "draft".
//
// # Strategies
//
// Compile picks one of:
//   - StrategyFTS: optional terms become an FTS5 prefix query ranked by bm25
//   - StrategyScan: a plain scan ordered by name, with LIKE prefilters for
//     boolean terms
//   - StrategyRegex: a scan whose candidates are matched by a compiled regexp
//   - StrategyEmpty: nothing can match, the store is not queried
//
// Structural filters (kind, extensions, size, time, folder scope) are built
// by one shared predicate builder, so every strategy filters identically.
package query
