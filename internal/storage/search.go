package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

// DefaultSearchLimit is used when a search is issued without a limit
const DefaultSearchLimit = 20

// searchSegments performs BM25 full-text search over segment content.
// A documentID of 0 searches every document.
func searchSegments(ctx context.Context, q querier, query string, documentID int64, limit int) ([]SearchResult, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	// bm25() is lower for better matches
	sqlQuery := `
		SELECT s.id, s.document_id, s.segment_index, s.content, s.created_at,
		       bm25(segments_fts) AS score
		FROM segments_fts
		INNER JOIN segments s ON segments_fts.rowid = s.id
		WHERE segments_fts MATCH ?
	`
	args := []interface{}{sanitized}
	if documentID != 0 {
		sqlQuery += " AND s.document_id = ?"
		args = append(args, documentID)
	}
	sqlQuery += " ORDER BY score, s.document_id, s.segment_index LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]SearchResult, 0)
	for rows.Next() {
		var (
			seg   types.Segment
			score float64
		)
		if err := rows.Scan(&seg.ID, &seg.DocumentID, &seg.Index, &seg.Content, &seg.CreatedAt, &score); err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Segment: &seg, Score: -score})
	}
	return results, rows.Err()
}

// sanitizeFTSQuery turns free text into an FTS5 query that matches rows
// containing every term. Each term is quoted, so operators and syntax
// characters in user input are matched literally.
func sanitizeFTSQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}
