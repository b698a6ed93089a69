package repository

import (
	"context"

	"github.com/zizcon/zizcon-api/internal/database"
	"github.com/zizcon/zizcon-api/internal/models"
)

// apiCallRepo is the concrete implementation of APICallRepository
type apiCallRepo struct {
	db *database.DB
}

// NewAPICallRepo creates a new API call repository
func NewAPICallRepo(db *database.DB) APICallRepository {
	return &apiCallRepo{db: db}
}

// Insert appends one call record to the ledger
func (r *apiCallRepo) Insert(ctx context.Context, record *models.APICallRecord) error {
	query := `INSERT INTO api_calls (id, timestamp, api_source) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, record.ID, record.Timestamp, record.Source)
	return err
}

// Count returns the total number of tracked calls
func (r *apiCallRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_calls`).Scan(&count)
	return count, err
}

// CountBySource returns the number of tracked calls per external API
func (r *apiCallRepo) CountBySource(ctx context.Context) (map[models.APISource]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT api_source, COUNT(*) FROM api_calls GROUP BY api_source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.APISource]int)
	for rows.Next() {
		var source models.APISource
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		counts[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
