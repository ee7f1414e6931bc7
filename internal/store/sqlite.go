package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/pkg/database"
)

// SqliteStore keeps every collection in a single documents table with the
// document body as JSON. Filters compile to json_extract expressions;
// unique auxiliary indexes are created by migrations.
type SqliteStore struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSqliteStore creates a document store over an open database.
func NewSqliteStore(db *database.DB, logger *zap.Logger) *SqliteStore {
	return &SqliteStore{db: db, logger: logger}
}

// Collection returns a handle for the named collection.
func (s *SqliteStore) Collection(name string) Collection {
	return &sqliteCollection{name: name, db: s.db, logger: s.logger}
}

type sqliteCollection struct {
	name   string
	db     *database.DB
	logger *zap.Logger
}

// filterSQL compiles a filter to a WHERE fragment. Keys are sorted so the
// generated SQL is deterministic.
func (c *sqliteCollection) filterSQL(filter Filter) (string, []interface{}) {
	clauses := []string{"collection = ?"}
	args := []interface{}{c.name}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := normalizeValue(filter[k])
		if k == "id" {
			clauses = append(clauses, "id = ?")
		} else {
			clauses = append(clauses, fmt.Sprintf("json_extract(doc, '$.%s') = ?", k))
		}
		args = append(args, v)
	}
	return strings.Join(clauses, " AND "), args
}

// normalizeValue converts filter values to types sqlite compares the same
// way json_extract renders them.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}

func (c *sqliteCollection) FindOne(ctx context.Context, filter Filter, out interface{}) error {
	where, args := c.filterSQL(filter)
	query := "SELECT doc FROM documents WHERE " + where + " LIMIT 1"

	var doc string
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoDocuments
	}
	if err != nil {
		c.logger.Error("Failed to query document", zap.String("collection", c.name), zap.Error(err))
		return fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	return json.Unmarshal([]byte(doc), out)
}

func (c *sqliteCollection) Find(ctx context.Context, filter Filter, opts FindOptions, out interface{}) error {
	where, args := c.filterSQL(filter)
	query := "SELECT doc FROM documents WHERE " + where

	if opts.Sort != nil {
		dir := "ASC"
		if opts.Sort.Desc {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY json_extract(doc, '$.%s') %s, id %s", opts.Sort.Field, dir, dir)
	} else {
		query += " ORDER BY id ASC"
	}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
		if opts.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", opts.Offset)
		}
	} else if opts.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", opts.Offset)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		c.logger.Error("Failed to query documents", zap.String("collection", c.name), zap.Error(err))
		return fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return err
		}
		docs = append(docs, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return decodeDocs(docs, out)
}

func (c *sqliteCollection) InsertOne(ctx context.Context, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, doc) VALUES (?, ?, ?)",
		c.name, id, string(body))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		c.logger.Error("Failed to insert document", zap.String("collection", c.name), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to insert into %s: %w", c.name, err)
	}
	return nil
}

func (c *sqliteCollection) UpdateOne(ctx context.Context, filter Filter, doc interface{}) (bool, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("failed to encode document: %w", err)
	}

	where, args := c.filterSQL(filter)
	query := "UPDATE documents SET doc = ? WHERE collection = ? AND id = (" +
		"SELECT id FROM documents WHERE " + where + " LIMIT 1)"
	execArgs := append([]interface{}{string(body), c.name}, args...)

	res, err := c.db.ExecContext(ctx, query, execArgs...)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicateKey
		}
		c.logger.Error("Failed to update document", zap.String("collection", c.name), zap.Error(err))
		return false, fmt.Errorf("failed to update %s: %w", c.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *sqliteCollection) DeleteOne(ctx context.Context, filter Filter) (bool, error) {
	where, args := c.filterSQL(filter)
	query := "DELETE FROM documents WHERE collection = ? AND id = (" +
		"SELECT id FROM documents WHERE " + where + " LIMIT 1)"
	execArgs := append([]interface{}{c.name}, args...)

	res, err := c.db.ExecContext(ctx, query, execArgs...)
	if err != nil {
		c.logger.Error("Failed to delete document", zap.String("collection", c.name), zap.Error(err))
		return false, fmt.Errorf("failed to delete from %s: %w", c.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *sqliteCollection) CountDocuments(ctx context.Context, filter Filter) (int64, error) {
	where, args := c.filterSQL(filter)
	query := "SELECT COUNT(*) FROM documents WHERE " + where

	var n int64
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		c.logger.Error("Failed to count documents", zap.String("collection", c.name), zap.Error(err))
		return 0, fmt.Errorf("failed to count %s: %w", c.name, err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// decodeDocs re-assembles raw documents into a JSON array and decodes it
// into out, which must be a pointer to a slice.
func decodeDocs(docs []json.RawMessage, out interface{}) error {
	if len(docs) == 0 {
		docs = []json.RawMessage{}
	}
	arr, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	return json.Unmarshal(arr, out)
}
