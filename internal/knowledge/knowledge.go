// Package knowledge is the destination knowledge base behind retrieval.
package knowledge

import (
	"cmp"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/travel-concierge/internal/core/error"
	"github.com/Chative-core-poc-v1/travel-concierge/pkg/sqlite"
)

//go:embed migrations/001_documents.sql
var documentsSchema string

// Migrations creates the knowledge tables.
var Migrations = []sqlite.Migration{{Name: "knowledge_001_documents", SQL: documentsSchema}}

// Store is a SQLite FTS5 knowledge base. It implements model.Searcher.
type Store struct {
	db *sql.DB
}

// NewStore migrates db and returns the store.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := sqlite.Migrate(ctx, db, Migrations); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Upsert replaces documents by id.
func (s *Store) Upsert(ctx context.Context, docs ...model.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.WrapSQL(err)
	}
	defer tx.Rollback()

	for _, d := range docs {
		if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.Content) == "" {
			return errx.BadRequest(fmt.Sprintf("document %q needs an id and content", d.Title))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE id = ?`, d.ID); err != nil {
			return errx.WrapSQL(err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents_fts (id, title, content, destination, category, tags) VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, d.Title, d.Content, d.Destination, d.Category, strings.Join(d.Tags, " "),
		); err != nil {
			return errx.WrapSQL(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errx.WrapSQL(err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents_fts`).Scan(&n); err != nil {
		return 0, errx.WrapSQL(err)
	}
	return n, nil
}

// interestBoost is added per matching interest tag on top of the bm25 score.
const interestBoost = 0.5

// Search ranks documents by bm25. A destination filter is matched
// case-insensitively; interests boost documents tagged with them. An empty
// result is not an error.
func (s *Store) Search(ctx context.Context, query string, k int, filters model.Filters) ([]model.Document, error) {
	match := ftsQuery(query)
	if match == "" || k <= 0 {
		return []model.Document{}, nil
	}

	q := `SELECT id, title, content, destination, category, tags, -bm25(documents_fts, 0.0, 2.0, 1.0, 1.0, 0.0, 1.0) AS score
FROM documents_fts
WHERE documents_fts MATCH ?`
	args := []any{match}
	if d := strings.TrimSpace(filters.Destination); d != "" {
		q += ` AND lower(destination) = lower(?)`
		args = append(args, d)
	}
	q += ` ORDER BY score DESC LIMIT ?`
	args = append(args, k*3)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	interests := lo.Map(filters.Interests, func(s string, _ int) string { return strings.ToLower(strings.TrimSpace(s)) })
	var docs []model.Document
	for rows.Next() {
		var (
			d    model.Document
			tags string
		)
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Destination, &d.Category, &tags, &d.Score); err != nil {
			return nil, errx.WrapSQL(err)
		}
		d.Tags = strings.Fields(tags)
		for _, tag := range d.Tags {
			if lo.Contains(interests, strings.ToLower(tag)) {
				d.Score += interestBoost
			}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapSQL(err)
	}

	// stable so bm25 order survives ties
	slices.SortStableFunc(docs, func(a, b model.Document) int { return cmp.Compare(b.Score, a.Score) })
	if len(docs) > k {
		docs = docs[:k]
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return docs, nil
}

// ftsQuery turns free text into an OR query of quoted terms, so user input
// never reaches the FTS5 query syntax.
func ftsQuery(text string) string {
	terms := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	terms = lo.Filter(terms, func(t string, _ int) bool { return len(t) > 2 && !stopWords[t] })
	terms = lo.Uniq(terms)
	if len(terms) == 0 {
		return ""
	}
	quoted := lo.Map(terms, func(t string, _ int) string { return `"` + t + `"` })
	return strings.Join(quoted, " OR ")
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "what": true, "when": true, "where": true,
	"how": true, "can": true, "you": true, "with": true, "that": true, "this": true, "from": true,
	"there": true, "should": true, "would": true, "about": true, "any": true, "best": true,
}
