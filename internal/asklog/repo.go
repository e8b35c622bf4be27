package asklog

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Record(ctx context.Context, entry Entry) error {
	stamp(&entry)
	query := `INSERT INTO questions (question, identity, outcome, num_sources, latency_ms, correlation_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		entry.Question, entry.Identity, string(entry.Outcome), entry.NumSources, entry.LatencyMs, entry.CorrelationID, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM questions`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

func (r *PostgresRepo) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, question, identity, outcome, num_sources, latency_ms, correlation_id, created_at FROM questions ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var outcome string
		if err := rows.Scan(&e.ID, &e.Question, &e.Identity, &outcome, &e.NumSources, &e.LatencyMs, &e.CorrelationID, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Outcome = Outcome(outcome)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
