// Package scanner enumerates files under a workspace root, honoring
// hardcoded excludes, .gitignore rules, user excludes/includes, max depth,
// symlink-cycle protection, and nested sub-workspace boundaries.
//
// Grounded on the teacher's internal/discover package (directory skip-set,
// IGNORE_SUFFIXES, filepath.Walk-based traversal), generalized from a flat
// ignore list into the compiled-regex + gitignore + nested-root model
// described by the spec.
package scanner

import (
	"os"
	"path/filepath"
	"sort"
)

// Config configures one scan.
type Config struct {
	IncludeExt    []string // e.g. [".go", ".py"]; empty + IncludeFiles empty means accept-all
	IncludeFiles  []string // glob patterns matched against the base name
	ExcludeDirs   []string // glob patterns, combined with hardcoded dir excludes
	ExcludeGlobs  []string // glob patterns, combined with hardcoded file excludes
	GitignoreRoot string   // if set, .gitignore files are honored starting here
	MaxDepth      int      // 0 means unlimited
	FollowSymlinks bool
}

// Entry is one yielded scan result.
type Entry struct {
	AbsPath  string
	RelPosix string
	Info     os.FileInfo
	Excluded bool
}

// Scanner walks one workspace root, respecting sibling workspace boundaries.
type Scanner struct {
	root       string
	cfg        Config
	excludes   *excludeMatcher
	gitignores *GitignoreCache
	boundary   *rootBoundary
}

// New builds a Scanner for root. The exclude matcher is compiled exactly
// once here, not per entry.
func New(root string, cfg Config, siblingRoots []string) *Scanner {
	return &Scanner{
		root:       root,
		cfg:        cfg,
		excludes:   buildExcludeMatcher(append(append([]string{}, cfg.ExcludeDirs...), cfg.ExcludeGlobs...)),
		gitignores: NewGitignoreCache(),
		boundary:   newRootBoundary(root, siblingRoots),
	}
}

// Scan walks the root and invokes yield for every file entry. The walk is
// lazy in the sense that yield may stop early by returning false; per-entry
// permission errors are skipped silently, and a root-level permission error
// yields nothing.
func (s *Scanner) Scan(yield func(Entry) bool) error {
	visited := newVisitedSet()

	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if dir == s.root {
				return nil // root permission error: empty result, not propagated
			}
			return nil // per-entry (directory) permission error: skip
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		gitignorePath := ""
		if s.cfg.GitignoreRoot != "" {
			gitignorePath = FindGitignore(dir, s.cfg.GitignoreRoot)
		}

		for _, de := range entries {
			absPath := filepath.Join(dir, de.Name())
			rel, relErr := filepath.Rel(s.root, absPath)
			if relErr != nil {
				continue
			}
			relPosix := filepath.ToSlash(rel)

			info, infoErr := de.Info()
			if infoErr != nil {
				continue // permission error on stat: skip
			}

			isSymlink := info.Mode()&os.ModeSymlink != 0
			if isSymlink {
				if !s.cfg.FollowSymlinks {
					continue
				}
				resolved, err := filepath.EvalSymlinks(absPath)
				if err != nil || visited.seen(resolved) {
					continue
				}
				visited.mark(resolved)
				real, err := os.Stat(resolved)
				if err != nil {
					continue
				}
				info = real
			}

			if de.IsDir() {
				if s.boundary.isNestedRoot(absPath) {
					continue // boundary enforcement: never descend into a sibling workspace root
				}
				if shouldExcludeDir(s, de.Name(), relPosix, gitignorePath) {
					continue
				}
				if s.cfg.MaxDepth > 0 && depth >= s.cfg.MaxDepth {
					continue
				}
				if err := walk(absPath, depth+1); err != nil {
					return err
				}
				continue
			}

			excluded := shouldExcludeFile(s, relPosix, gitignorePath)
			if excluded {
				continue // excluded files are never yielded at all (see TestableProperty #3)
			}
			if !s.matchesInclude(de.Name()) {
				continue
			}
			if !yield(Entry{AbsPath: absPath, RelPosix: relPosix, Info: info, Excluded: false}) {
				return errStop
			}
		}
		return nil
	}

	err := walk(s.root, 0)
	if err == errStop {
		return nil
	}
	return err
}

var errStop = stopError{}

type stopError struct{}

func (stopError) Error() string { return "scan stopped by consumer" }

func shouldExcludeDir(s *Scanner, name, relPosix, gitignorePath string) bool {
	if s.excludes.MatchString(relPosix) {
		return true
	}
	if gitignorePath != "" && s.gitignores.Match(gitignorePath, relPosix) {
		return true
	}
	return false
}

func shouldExcludeFile(s *Scanner, relPosix, gitignorePath string) bool {
	if s.excludes.MatchString(relPosix) {
		return true
	}
	if gitignorePath != "" && s.gitignores.Match(gitignorePath, relPosix) {
		return true
	}
	return false
}

// matchesInclude applies the include filter: extension OR glob match
// against IncludeFiles, or accept-all if both are empty.
func (s *Scanner) matchesInclude(name string) bool {
	if len(s.cfg.IncludeExt) == 0 && len(s.cfg.IncludeFiles) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, e := range s.cfg.IncludeExt {
		if e == ext {
			return true
		}
	}
	for _, pattern := range s.cfg.IncludeFiles {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// visitedSet tracks resolved real paths already visited via a symlink, for
// cycle protection.
type visitedSet struct {
	seenPaths map[string]bool
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seenPaths: make(map[string]bool)}
}

func (v *visitedSet) seen(path string) bool {
	return v.seenPaths[path]
}

func (v *visitedSet) mark(path string) {
	v.seenPaths[path] = true
}
