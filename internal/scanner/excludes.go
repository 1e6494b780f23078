package scanner

import (
	"regexp"
	"strings"
)

// hardcodedExcludeDirs mirrors common build/VCS/tooling directories that are
// always skipped, regardless of user configuration.
var hardcodedExcludeDirs = []string{
	".git", "node_modules", ".venv", "venv", "dist", "build", ".next",
	"target", "coverage", ".idea", ".vscode", ".pytest_cache", "__pycache__",
}

// hardcodedExcludeGlobs mirrors common build artifact file globs that are
// always skipped.
var hardcodedExcludeGlobs = []string{
	"*.pyc", "*.pyo", "*.class", "*.o", "*.dll", "*.so", "*.dylib", "*.exe", "*.bin",
}

// excludeMatcher is a single compiled alternation regex built once per scan
// from hardcoded names/globs plus user-supplied glob patterns (which may use
// brace expansion, e.g. "*.{spec,test}.js").
type excludeMatcher struct {
	re *regexp.Regexp
}

// buildExcludeMatcher compiles the full exclude set into one alternation
// regex. Called once per scan, never per entry.
func buildExcludeMatcher(userGlobs []string) *excludeMatcher {
	var alternatives []string
	for _, d := range hardcodedExcludeDirs {
		alternatives = append(alternatives, "(^|/)"+regexp.QuoteMeta(d)+"(/|$)")
	}
	for _, g := range hardcodedExcludeGlobs {
		alternatives = append(alternatives, globToRegexFragment(g))
	}
	for _, raw := range userGlobs {
		for _, expanded := range expandBraces(raw) {
			alternatives = append(alternatives, globToRegexFragment(expanded))
		}
	}
	if len(alternatives) == 0 {
		// Never-matching pattern so callers can unconditionally call MatchString.
		return &excludeMatcher{re: regexp.MustCompile(`$.^`)}
	}
	pattern := strings.Join(alternatives, "|")
	return &excludeMatcher{re: regexp.MustCompile(pattern)}
}

// MatchString reports whether the given forward-slash relative path is excluded.
func (m *excludeMatcher) MatchString(relPosix string) bool {
	return m.re.MatchString(relPosix)
}

// expandBraces expands a single level of shell brace expansion, e.g.
// "*.{spec,test}.js" -> ["*.spec.js", "*.test.js"]. Patterns without braces
// are returned unchanged as a single-element slice.
func expandBraces(pattern string) []string {
	start := strings.IndexByte(pattern, '{')
	if start < 0 {
		return []string{pattern}
	}
	end := strings.IndexByte(pattern[start:], '}')
	if end < 0 {
		return []string{pattern}
	}
	end += start
	prefix := pattern[:start]
	suffix := pattern[end+1:]
	alts := strings.Split(pattern[start+1:end], ",")
	out := make([]string, 0, len(alts))
	for _, a := range alts {
		out = append(out, prefix+a+suffix)
	}
	return out
}

// globToRegexFragment converts a single fnmatch-style glob (supporting
// "*", "?", and "**") into a regex fragment anchored to match anywhere a
// path component boundary makes sense.
func globToRegexFragment(glob string) string {
	var b strings.Builder
	i := 0
	for i < len(glob) {
		switch {
		case strings.HasPrefix(glob[i:], "**/"):
			b.WriteString("(.*/)?")
			i += 3
		case strings.HasPrefix(glob[i:], "/**"):
			b.WriteString("(/.*)?")
			i += 3
		case glob[i] == '*':
			b.WriteString("[^/]*")
			i++
		case glob[i] == '?':
			b.WriteString("[^/]")
			i++
		default:
			b.WriteString(regexp.QuoteMeta(string(glob[i])))
			i++
		}
	}
	return "(^|/)" + b.String() + "$"
}
