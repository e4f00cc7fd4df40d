package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the pgx-backed timeline repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &timelineRepository{pool: pool}
}

func (r *timelineRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argPos := 1

	if filters.EventType != "" {
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", argPos))
		args = append(args, filters.EventType)
		argPos++
	}
	if filters.EntityID != "" {
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", argPos))
		args = append(args, filters.EntityID)
		argPos++
	}
	if !filters.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", argPos))
		args = append(args, filters.From)
		argPos++
	}
	if !filters.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("occurred_at < $%d", argPos))
		args = append(args, filters.To)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM pricing_audit_log %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT id, event_type, actor_id, entity_id, payload, occurred_at
		 FROM pricing_audit_log %s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var payloadJSON []byte
		if err := rows.Scan(&row.ID, &row.EventType, &row.ActorID, &row.EntityID, &payloadJSON, &row.At); err != nil {
			return nil, 0, err
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &row.Payload); err != nil {
				return nil, 0, fmt.Errorf("audit: decode payload: %w", err)
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}
