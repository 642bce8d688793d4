package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// GraphSummary holds the headline counts the integrity auditor reports.
type GraphSummary struct {
	TotalPersons      int64            `json:"total_persons"`
	PersonsWithParent int64            `json:"persons_with_parent"`
	LinkedParentRatio float64          `json:"linked_parent_ratio"`
	ParentEdges       int64            `json:"parent_edges"`
	OverrideCount     int64            `json:"override_count"`
	ProviderCoverage  map[string]int64 `json:"provider_coverage"`
}

// CoverageGap is a person missing an external identity for a provider.
type CoverageGap struct {
	PersonID    string `json:"person_id"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider"`
}

// LinkageGap is a person expected to have parent edges but missing them.
type LinkageGap struct {
	PersonID    string `json:"person_id"`
	DisplayName string `json:"display_name"`
	ExternalID  string `json:"external_id,omitempty"`
}

// OrphanedEdge is a parent edge referencing a person row that no longer
// exists (partial crawl or prune).
type OrphanedEdge struct {
	EdgeID        uint   `json:"edge_id"`
	ParentID      string `json:"parent_id"`
	ChildID       string `json:"child_id"`
	MissingEnd    string `json:"missing_end"` // "parent" or "child"
	MissingPerson string `json:"missing_person"`
}

// StalePayload is the newest raw snapshot for a record, older than the
// caller's threshold and a candidate for re-fetch.
type StalePayload struct {
	Source     string `json:"source"`
	ExternalID string `json:"external_id"`
	FetchedAt  int64  `json:"fetched_at"`
}

// GetGraphSummary computes the headline counts for the whole graph.
func GetGraphSummary(db *sql.DB) (GraphSummary, error) {
	summary := GraphSummary{ProviderCoverage: make(map[string]int64)}

	counts := []struct {
		builder sq.SelectBuilder
		dest    *int64
	}{
		{psql.Select("COUNT(*)").From("people"), &summary.TotalPersons},
		{psql.Select("COUNT(DISTINCT child_id)").From("parent_edges"), &summary.PersonsWithParent},
		{psql.Select("COUNT(*)").From("parent_edges"), &summary.ParentEdges},
		{psql.Select("COUNT(*)").From("local_overrides"), &summary.OverrideCount},
	}
	for _, c := range counts {
		sqlStr, args, err := c.builder.ToSql()
		if err != nil {
			return GraphSummary{}, fmt.Errorf("failed to build summary query: %w", err)
		}
		if err := db.QueryRow(sqlStr, args...).Scan(c.dest); err != nil {
			return GraphSummary{}, fmt.Errorf("failed to run summary query: %w", err)
		}
	}
	if summary.TotalPersons > 0 {
		summary.LinkedParentRatio = float64(summary.PersonsWithParent) / float64(summary.TotalPersons)
	}

	sqlStr, args, err := psql.Select("source", "COUNT(*)").
		From("external_identities").
		GroupBy("source").
		ToSql()
	if err != nil {
		return GraphSummary{}, fmt.Errorf("failed to build coverage query: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return GraphSummary{}, fmt.Errorf("failed to query provider coverage: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return GraphSummary{}, fmt.Errorf("failed to scan provider coverage row: %w", err)
		}
		summary.ProviderCoverage[source] = count
	}
	return summary, rows.Err()
}

// FindCoverageGaps lists persons lacking an external identity for each of the
// requested providers.
func FindCoverageGaps(db *sql.DB, providers []string) ([]CoverageGap, error) {
	var gaps []CoverageGap
	for _, provider := range providers {
		sqlStr, args, err := psql.Select("p.id", "p.display_name").
			From("people p").
			Where(sq.Expr(
				"NOT EXISTS (SELECT 1 FROM external_identities ei WHERE ei.person_id = p.id AND ei.source = ?)",
				provider,
			)).
			OrderBy("p.id ASC").
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build coverage gap query for %s: %w", provider, err)
		}
		rows, err := db.Query(sqlStr, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query coverage gaps for %s: %w", provider, err)
		}
		for rows.Next() {
			gap := CoverageGap{Provider: provider}
			if err := rows.Scan(&gap.PersonID, &gap.DisplayName); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan coverage gap row: %w", err)
			}
			gaps = append(gaps, gap)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return gaps, nil
}

// FindParentLinkageGaps lists persons with no inbound parent edge that are
// not flagged with a no_parents claim. When provider is non-empty, only
// persons holding an identity for that provider are considered (and the
// matching external id is returned so a repair pass can re-query the
// provider).
func FindParentLinkageGaps(db *sql.DB, provider string) ([]LinkageGap, error) {
	builder := psql.Select("p.id", "p.display_name").
		From("people p").
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM parent_edges pe WHERE pe.child_id = p.id)")).
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM claims c WHERE c.person_id = p.id AND c.predicate = 'no_parents')")).
		OrderBy("p.id ASC")

	if provider != "" {
		builder = psql.Select("p.id", "p.display_name", "ei.external_id").
			From("people p").
			Join("external_identities ei ON ei.person_id = p.id").
			Where(sq.Eq{"ei.source": provider}).
			Where(sq.Expr("NOT EXISTS (SELECT 1 FROM parent_edges pe WHERE pe.child_id = p.id)")).
			Where(sq.Expr("NOT EXISTS (SELECT 1 FROM claims c WHERE c.person_id = p.id AND c.predicate = 'no_parents')")).
			OrderBy("p.id ASC")
	}

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build linkage gap query: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query linkage gaps: %w", err)
	}
	defer rows.Close()

	var gaps []LinkageGap
	for rows.Next() {
		var gap LinkageGap
		if provider != "" {
			err = rows.Scan(&gap.PersonID, &gap.DisplayName, &gap.ExternalID)
		} else {
			err = rows.Scan(&gap.PersonID, &gap.DisplayName)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan linkage gap row: %w", err)
		}
		gaps = append(gaps, gap)
	}
	return gaps, rows.Err()
}

// FindOrphanedEdges lists parent edges whose parent or child person row is
// missing from the people table.
func FindOrphanedEdges(db *sql.DB) ([]OrphanedEdge, error) {
	sqlStr, args, err := psql.Select("pe.id", "pe.parent_id", "pe.child_id").
		From("parent_edges pe").
		Where(sq.Expr(
			"NOT EXISTS (SELECT 1 FROM people p WHERE p.id = pe.parent_id)" +
				" OR NOT EXISTS (SELECT 1 FROM people p WHERE p.id = pe.child_id)",
		)).
		OrderBy("pe.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orphaned edge query: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphaned edges: %w", err)
	}
	defer rows.Close()

	var orphans []OrphanedEdge
	for rows.Next() {
		var edge OrphanedEdge
		if err := rows.Scan(&edge.EdgeID, &edge.ParentID, &edge.ChildID); err != nil {
			return nil, fmt.Errorf("failed to scan orphaned edge row: %w", err)
		}
		orphans = append(orphans, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// classify which endpoint is missing with a second cheap existence check
	for i := range orphans {
		var exists int
		sqlStr, args, err := psql.Select("COUNT(*)").From("people").Where(sq.Eq{"id": orphans[i].ParentID}).ToSql()
		if err != nil {
			return nil, err
		}
		if err := db.QueryRow(sqlStr, args...).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to classify orphaned edge %d: %w", orphans[i].EdgeID, err)
		}
		if exists == 0 {
			orphans[i].MissingEnd = "parent"
			orphans[i].MissingPerson = orphans[i].ParentID
		} else {
			orphans[i].MissingEnd = "child"
			orphans[i].MissingPerson = orphans[i].ChildID
		}
	}
	return orphans, nil
}

// FindStalePayloads lists records whose newest raw snapshot for the given
// provider is older than the cutoff unix timestamp.
func FindStalePayloads(db *sql.DB, source string, olderThan int64) ([]StalePayload, error) {
	sqlStr, args, err := psql.Select("source", "external_id", "MAX(fetched_at) AS newest").
		From("raw_payloads").
		Where(sq.Eq{"source": source}).
		GroupBy("source", "external_id").
		Having(sq.Lt{"newest": olderThan}).
		OrderBy("newest ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stale payload query: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale payloads: %w", err)
	}
	defer rows.Close()

	var stale []StalePayload
	for rows.Next() {
		var row StalePayload
		if err := rows.Scan(&row.Source, &row.ExternalID, &row.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stale payload row: %w", err)
		}
		stale = append(stale, row)
	}
	return stale, rows.Err()
}
