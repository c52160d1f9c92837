package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BanRepository handles the persisted ban list.
type BanRepository struct {
	pool *pgxpool.Pool
}

// NewBanRepository creates a new BanRepository instance.
func NewBanRepository(pool *pgxpool.Pool) *BanRepository {
	return &BanRepository{pool: pool}
}

// Ban records a banned node. Re-banning updates the record.
func (r *BanRepository) Ban(ctx context.Context, nodeID, bannedBy, reason string) error {
	const query = `
		INSERT INTO banned_nodes (node_id, banned_by, reason, banned_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (node_id) DO UPDATE SET
			banned_by = EXCLUDED.banned_by,
			reason = EXCLUDED.reason,
			banned_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, nodeID, bannedBy, reason); err != nil {
		return fmt.Errorf("failed to ban node: %w", err)
	}
	return nil
}

// Unban removes a node from the ban list.
func (r *BanRepository) Unban(ctx context.Context, nodeID string) error {
	const query = `DELETE FROM banned_nodes WHERE node_id = $1`

	if _, err := r.pool.Exec(ctx, query, nodeID); err != nil {
		return fmt.Errorf("failed to unban node: %w", err)
	}
	return nil
}

// List returns all banned node ids.
func (r *BanRepository) List(ctx context.Context) ([]string, error) {
	const query = `SELECT node_id FROM banned_nodes`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list banned nodes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan banned node: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banned nodes: %w", err)
	}

	return ids, nil
}
