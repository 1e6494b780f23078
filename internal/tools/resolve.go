package tools

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BaeCheolHan/sari-sub000/internal/pathutil"
)

// resolvePath accepts either a db-path ("<root_id>/rel/posix/path") or a
// raw filesystem path and resolves both forms to a db-path and an absolute
// on-disk path, matching the teacher's resolve_fs_path contract (the
// original's _util.resolve_fs_path, referenced throughout get_snippet.py
// and read_file.py).
func (c *Context) resolvePath(raw string) (dbPath, absPath string, err *ToolError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", invalidArgs("path/target is required")
	}

	if rootID, relPosix, _, ok := pathutil.SplitDBPath(raw); ok {
		if root, storeErr := c.Store.GetRoot(rootID); storeErr == nil && root != nil {
			abs := filepath.Join(root.Path, filepath.FromSlash(relPosix))
			if c.rootOutOfScope(abs) {
				return "", "", NewToolError(CodeRootOutOfScope, "path falls outside every allowed workspace root")
			}
			return raw, abs, nil
		}
	}

	abs := raw
	if !filepath.IsAbs(abs) {
		if len(c.AllowedRoots) == 0 {
			return "", "", invalidArgs("relative paths require at least one configured workspace root")
		}
		abs = filepath.Join(c.AllowedRoots[0], raw)
	}
	abs = filepath.Clean(abs)
	if c.rootOutOfScope(abs) {
		return "", "", NewToolError(CodeRootOutOfScope, "path falls outside every allowed workspace root")
	}

	for _, root := range c.AllowedRoots {
		normRoot, nErr := pathutil.NormalizeRoot(root)
		if nErr != nil {
			continue
		}
		if !pathHasPrefix(abs, normRoot) {
			continue
		}
		rel, relErr := pathutil.ToPosixRel(normRoot, abs)
		if relErr != nil {
			continue
		}
		return pathutil.DBPath(pathutil.RootID(normRoot), rel), abs, nil
	}
	return "", abs, nil
}

func readOnDisk(absPath string) ([]byte, error) {
	return os.ReadFile(absPath)
}
