package store

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// MigrateLegacyGraph imports one project's worth of rows from a legacy
// node/edge graph database (the teacher's nodes/edges schema: nodes(id,
// project, label, name, qualified_name, file_path, start_line, end_line,
// properties), edges(id, project, source_id, target_id, type,
// properties)) into this Store's symbols/symbol_relations tables, scoped
// to rootID. Safe to call multiple times: symbols are upserted by their
// (path, kind, qualname) natural key, so a re-run just re-applies the same
// rows.
//
// Grounded on the teacher's internal/store/migrate.go StoreRouter.migrate/
// migrateProject, adapted from its ATTACH-DATABASE bulk copy (viable there
// because both schemas were identical per-project tables) to a read,
// translate, and batch-upsert loop, since the legacy graph schema and this
// module's file/symbol schema don't share column layouts.
func (s *Store) MigrateLegacyGraph(legacyDBPath, project, rootID string) (symbols, relations int, err error) {
	legacyDB, err := sql.Open("sqlite3", legacyDBPath+"?mode=ro")
	if err != nil {
		return 0, 0, fmt.Errorf("open legacy: %w", err)
	}
	defer legacyDB.Close()

	idToQualname := map[string]string{}
	idToPath := map[string]string{}

	rows, err := legacyDB.Query(
		`SELECT id, label, name, qualified_name, file_path, start_line, end_line, properties
		   FROM nodes WHERE project = ?`, project)
	if err != nil {
		return 0, 0, fmt.Errorf("query nodes: %w", err)
	}
	var symbolRows []SymbolRow
	for rows.Next() {
		var id, label, name, qualname, filePath, properties string
		var startLine, endLine int
		if scanErr := rows.Scan(&id, &label, &name, &qualname, &filePath, &startLine, &endLine, &properties); scanErr != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("scan node: %w", scanErr)
		}
		kind := legacyKind(label)
		idToQualname[id] = qualname
		idToPath[id] = filePath
		symbolRows = append(symbolRows, SymbolRow{
			SymbolID: legacySymbolID(filePath, kind, qualname),
			Path:     filePath,
			RootID:   rootID,
			Name:     name,
			Qualname: qualname,
			Kind:     kind,
			Line:     startLine,
			EndLine:  endLine,
			MetaJSON: legacyMetaJSON(properties),
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, 0, fmt.Errorf("rows: %w", err)
	}
	rows.Close()

	if err := s.UpsertSymbolBatch(symbolRows); err != nil {
		return 0, 0, fmt.Errorf("upsert symbols: %w", err)
	}

	edgeRows, err := legacyDB.Query(
		`SELECT source_id, target_id, type FROM edges WHERE project = ?`, project)
	if err != nil {
		return len(symbolRows), 0, fmt.Errorf("query edges: %w", err)
	}
	defer edgeRows.Close()

	var relRows []RelationRow
	for edgeRows.Next() {
		var sourceID, targetID, relType string
		if scanErr := edgeRows.Scan(&sourceID, &targetID, &relType); scanErr != nil {
			return len(symbolRows), 0, fmt.Errorf("scan edge: %w", scanErr)
		}
		fromQual, fromOK := idToQualname[sourceID]
		toQual, toOK := idToQualname[targetID]
		if !fromOK || !toOK {
			continue // dangling reference into a project not migrated
		}
		relRows = append(relRows, RelationRow{
			FromSymbol: fromQual,
			FromPath:   idToPath[sourceID],
			ToSymbol:   toQual,
			ToPath:     idToPath[targetID],
			RelType:    relType,
		})
	}
	if err := edgeRows.Err(); err != nil {
		return len(symbolRows), 0, fmt.Errorf("rows: %w", err)
	}

	if err := s.InsertRelationBatch(relRows); err != nil {
		return len(symbolRows), 0, fmt.Errorf("insert relations: %w", err)
	}

	slog.Info("store.migrate_legacy_graph.done", "project", project, "symbols", len(symbolRows), "relations", len(relRows))
	return len(symbolRows), len(relRows), nil
}

// legacySymbolID mirrors internal/extractor.SymbolID's (path, kind,
// qualname) hashing scheme; store intentionally doesn't import
// internal/extractor to keep this package's dependency direction one-way
// (extractor depends on astlang, not on store), so the scheme is
// reproduced locally rather than shared.
func legacySymbolID(path, kind, qualname string) string {
	h := sha1.Sum([]byte(path + "|" + kind + "|" + qualname))
	return hex.EncodeToString(h[:])
}

// legacyKind maps the teacher's free-form node "label" column onto this
// module's fixed SymbolKind vocabulary; anything unrecognized becomes a
// variable rather than being dropped, since the legacy graph has no
// concept of "symbol kind unknown".
func legacyKind(label string) string {
	switch label {
	case "Function", "function":
		return "function"
	case "Method", "method":
		return "method"
	case "Class", "class":
		return "class"
	case "Interface", "interface":
		return "interface"
	case "Struct", "struct":
		return "struct"
	case "Module", "module", "Package", "package":
		return "module"
	default:
		return "variable"
	}
}

// legacyMetaJSON re-wraps the legacy "properties" column (already a JSON
// object as text in the teacher's schema) so it round-trips as valid JSON
// even if the source text is empty or malformed.
func legacyMetaJSON(properties string) string {
	if properties == "" {
		return "{}"
	}
	var v json.RawMessage
	if json.Unmarshal([]byte(properties), &v) != nil {
		return "{}"
	}
	return properties
}
