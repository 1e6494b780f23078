package search

import "regexp"

// sqlKeyword flags queries that look like SQL statements rather than a
// code/identifier search, forcing the "code" type even for auto dispatch.
var sqlKeyword = regexp.MustCompile(`(?i)^\s*(select|insert|update|delete|create\s+table|drop\s+table|alter\s+table)\b`)

// urlLike flags path-shaped or HTTP-method-prefixed queries as "api".
var urlLike = regexp.MustCompile(`^(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS)\s+/`)
var pathLike = regexp.MustCompile(`^/[\w\-/{}:.]*$`)

// identifierLike flags dotted/namespaced/PascalCase-ish tokens as "symbol".
var identifierLike = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(::|\.)[A-Za-z_][A-Za-z0-9_:.]*$|^[A-Z][A-Za-z0-9_]*$`)

// InferType resolves search_type="auto" into a concrete type, following the
// original dispatcher's precedence: SQL shape is checked first and always
// wins (it explicitly blocks symbol/api inference), then URL shape, then
// identifier shape, defaulting to "code".
func InferType(query string) (resolved string, blockedReason string) {
	if sqlKeyword.MatchString(query) {
		return "code", "sql-shaped query blocked symbol/api inference"
	}
	if urlLike.MatchString(query) || pathLike.MatchString(query) {
		return "api", ""
	}
	if identifierLike.MatchString(query) {
		return "symbol", ""
	}
	return "code", ""
}
