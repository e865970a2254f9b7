package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unilocator/pairing-server-go/internal/config"
)

// PostgresStore keeps each document as a jsonb row keyed by (collection,
// id). Timestamps are stored in the canonical fixed-width encoding, so
// range filters and ordering compile to plain text comparisons.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

func ConnectPostgres(databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	db.SetConnMaxLifetime(config.DBConnMaxLifetime)

	return &PostgresStore{db: db}, nil
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the documents table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection text NOT NULL,
			id         text NOT NULL,
			fields     jsonb NOT NULL,
			PRIMARY KEY (collection, id)
		)
	`)
	if err != nil {
		return classify("ensure schema", err)
	}
	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS documents_fields_idx
		ON documents USING gin (fields)
	`)
	if err != nil {
		return classify("ensure schema", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `
		SELECT fields FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify("get", err)
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return nil, Fatal("get", err)
	}
	return &Document{ID: id, Fields: fields}, nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	query, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, Fatal("query", err)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, classify("query", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, classify("query", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, Fatal("query", err)
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query", err)
	}
	return docs, nil
}

func (s *PostgresStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	raw, err := encodeFields(fields)
	if err != nil {
		return "", Fatal("add", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3)
	`, collection, id, raw)
	if err != nil {
		return "", classify("add", err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := encodeFields(fields)
	if err != nil {
		return Fatal("update", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET fields = fields || $3::jsonb
		WHERE collection = $1 AND id = $2
	`, collection, id, raw)
	if err != nil {
		return classify("update", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return classify("update", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := encodeFields(fields)
	if err != nil {
		return Fatal("set", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET fields = documents.fields || EXCLUDED.fields
	`, collection, id, raw)
	if err != nil {
		return classify("set", err)
	}
	return nil
}

var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func buildQuery(collection string, q Query) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT id, fields FROM documents WHERE collection = $1")
	args := []any{collection}

	now := time.Now()
	for _, f := range q.Filters {
		if !fieldNamePattern.MatchString(f.Field) {
			return "", nil, fmt.Errorf("bad filter field %q", f.Field)
		}

		var op string
		switch f.Op {
		case OpEqual:
			op = "="
		case OpGreater:
			op = ">"
		default:
			return "", nil, fmt.Errorf("bad filter op %q", f.Op)
		}

		switch val := normalizeValue(f.Value, now).(type) {
		case string:
			args = append(args, val)
			fmt.Fprintf(&sb, " AND fields->>'%s' %s $%d", f.Field, op, len(args))
		case bool:
			args = append(args, val)
			fmt.Fprintf(&sb, " AND (fields->>'%s')::boolean %s $%d", f.Field, op, len(args))
		case int64:
			args = append(args, val)
			fmt.Fprintf(&sb, " AND (fields->>'%s')::numeric %s $%d", f.Field, op, len(args))
		case float64:
			args = append(args, val)
			fmt.Fprintf(&sb, " AND (fields->>'%s')::numeric %s $%d", f.Field, op, len(args))
		default:
			return "", nil, fmt.Errorf("unsupported filter value type %T", f.Value)
		}
	}

	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range q.OrderBy {
			if !fieldNamePattern.MatchString(o.Field) {
				return "", nil, fmt.Errorf("bad order field %q", o.Field)
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			fmt.Fprintf(&sb, "fields->>'%s' %s", o.Field, dir)
		}
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args, nil
}

func encodeFields(fields map[string]any) ([]byte, error) {
	return json.Marshal(resolveFields(fields, time.Now()))
}

func decodeFields(raw []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}

// classify sorts backend failures into retryable and fatal. Context
// expiry passes through untouched so callers can tell timeouts apart from
// store faults.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient(op, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08 (connection), 53 (resources), 57 (operator intervention)
		// and serialization failures are worth retrying; everything else,
		// notably 42501 (insufficient privilege), is not.
		class := pqErr.Code.Class()
		switch class {
		case "08", "53", "57":
			return Transient(op, err)
		}
		if pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return Transient(op, err)
		}
		return Fatal(op, err)
	}

	if errors.Is(err, sql.ErrConnDone) {
		return Transient(op, err)
	}

	return Fatal(op, err)
}
