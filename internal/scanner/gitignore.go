package scanner

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// gitignoreEntry is a compiled .gitignore, cached by the source file's mtime.
type gitignoreEntry struct {
	mtime    time.Time
	matcher  *excludeMatcher
	lruCache map[string]bool
	lruOrder []string
}

const gitignoreLRUCap = 4096

// GitignoreCache loads and caches .gitignore files keyed by absolute path,
// invalidating an entry when the underlying file's mtime changes.
type GitignoreCache struct {
	mu      sync.Mutex
	entries map[string]*gitignoreEntry
}

// NewGitignoreCache creates an empty cache.
func NewGitignoreCache() *GitignoreCache {
	return &GitignoreCache{entries: make(map[string]*gitignoreEntry)}
}

// Match reports whether relPosix (relative to the directory containing
// gitignorePath) is ignored by that .gitignore file. Returns false if the
// file does not exist or cannot be read.
func (c *GitignoreCache) Match(gitignorePath, relPosix string) bool {
	c.mu.Lock()
	entry := c.load(gitignorePath)
	if entry == nil {
		c.mu.Unlock()
		return false
	}
	if cached, ok := entry.lruCache[relPosix]; ok {
		c.mu.Unlock()
		return cached
	}
	result := entry.matcher.MatchString(relPosix)
	entry.lruCache[relPosix] = result
	entry.lruOrder = append(entry.lruOrder, relPosix)
	if len(entry.lruOrder) > gitignoreLRUCap {
		evict := entry.lruOrder[0]
		entry.lruOrder = entry.lruOrder[1:]
		delete(entry.lruCache, evict)
	}
	c.mu.Unlock()
	return result
}

// load returns the cached entry for path, recompiling it if the file's
// mtime has changed since the last load. Caller must hold c.mu.
func (c *GitignoreCache) load(path string) *gitignoreEntry {
	info, err := os.Stat(path)
	if err != nil {
		delete(c.entries, path)
		return nil
	}
	if existing, ok := c.entries[path]; ok && existing.mtime.Equal(info.ModTime()) {
		return existing
	}

	lines, err := readLines(path)
	if err != nil {
		delete(c.entries, path)
		return nil
	}
	entry := &gitignoreEntry{
		mtime:    info.ModTime(),
		matcher:  buildExcludeMatcher(filterGitignoreLines(lines)),
		lruCache: make(map[string]bool),
	}
	c.entries[path] = entry
	return entry
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// filterGitignoreLines drops comments, blank lines, and negations (the
// compiled alternation regex has no negative-match support; negated
// patterns are rare enough in source trees that keeping negated-back files
// excluded, i.e. over-excluding them, is an acceptable approximation here).
func filterGitignoreLines(lines []string) []string {
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// FindGitignore walks upward from dir looking for the nearest .gitignore,
// stopping at stopAt (the workspace root).
func FindGitignore(dir, stopAt string) string {
	for {
		candidate := filepath.Join(dir, ".gitignore")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		if dir == stopAt || dir == filepath.Dir(dir) {
			return ""
		}
		dir = filepath.Dir(dir)
	}
}
