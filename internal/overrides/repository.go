package overrides

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-pricing/internal/audit"
	"github.com/meridian-erp/meridian-pricing/internal/platform/db"
)

// Repository provides storage for override records. WithTx runs the callback
// against a Serializable transaction; the overlap exclusion constraint in the
// schema backs the same guarantee at the storage layer.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id string) (*OverrideRecord, error)
	List(ctx context.Context, req ListOverridesRequest) ([]OverrideRecord, int, error)
	ListCandidates(ctx context.Context, clientID, productID, categoryName string) ([]OverrideRecord, error)
	FindOverlapping(ctx context.Context, rec OverrideRecord) (string, error)
	Insert(ctx context.Context, rec OverrideRecord) error
	Update(ctx context.Context, rec OverrideRecord) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	AppendAudit(ctx context.Context, entry audit.Entry) error
}

// ExclusionConstraintName is the schema-level overlap guard; violations are
// surfaced as ErrConflict.
const ExclusionConstraintName = "excl_pricing_overrides_window"

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository returns the pgx-backed override repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		repoTx := &repository{db: tx, pool: r.pool}
		return fn(ctx, repoTx)
	})
}

const recordColumns = `id, client_id, product_id, category_name, discount_percent, fixed_price,
	minimum_quantity, valid_from, valid_until, is_active, notes, created_by, created_at, updated_at`

func scanRecord(row pgx.Row) (*OverrideRecord, error) {
	var rec OverrideRecord
	err := row.Scan(
		&rec.ID, &rec.ClientID, &rec.ProductID, &rec.CategoryName,
		&rec.DiscountPercent, &rec.FixedPrice, &rec.MinimumQuantity,
		&rec.ValidFrom, &rec.ValidUntil, &rec.IsActive, &rec.Notes,
		&rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) Get(ctx context.Context, id string) (*OverrideRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM pricing_overrides WHERE id = $1", recordColumns)
	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *repository) List(ctx context.Context, req ListOverridesRequest) ([]OverrideRecord, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	conditions = append(conditions, fmt.Sprintf("client_id = $%d", argPos))
	args = append(args, req.ClientID)
	argPos++

	if req.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", argPos))
		args = append(args, *req.ProductID)
		argPos++
	}
	if req.CategoryName != nil {
		conditions = append(conditions, fmt.Sprintf("category_name = $%d", argPos))
		args = append(args, *req.CategoryName)
		argPos++
	}
	if req.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *req.IsActive)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM pricing_overrides %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(
		"SELECT %s FROM pricing_overrides %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		recordColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []OverrideRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ListCandidates returns every active record for the client whose target
// matches the product or the category. Validity-window and quantity filtering
// is deliberately left to the resolver so the result stays cacheable per
// (client, product, category).
func (r *repository) ListCandidates(ctx context.Context, clientID, productID, categoryName string) ([]OverrideRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM pricing_overrides
		 WHERE client_id = $1
		   AND is_active
		   AND (product_id = NULLIF($2, '') OR category_name = NULLIF($3, ''))
		 ORDER BY created_at DESC, id DESC`, recordColumns)

	rows, err := r.db.Query(ctx, query, clientID, productID, categoryName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OverrideRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// FindOverlapping returns the id of an active record for the same client and
// target whose validity window overlaps rec's, excluding rec itself. It
// returns an empty string when no overlap exists.
func (r *repository) FindOverlapping(ctx context.Context, rec OverrideRecord) (string, error) {
	const query = `SELECT id FROM pricing_overrides
		WHERE client_id = $1
		  AND is_active
		  AND id <> $2
		  AND COALESCE(product_id, '') = COALESCE($3, '')
		  AND COALESCE(category_name, '') = COALESCE($4, '')
		  AND tstzrange(valid_from, valid_until) && tstzrange($5, $6)
		LIMIT 1`

	var conflictingID string
	err := r.db.QueryRow(ctx, query,
		rec.ClientID, rec.ID, rec.ProductID, rec.CategoryName,
		rec.ValidFrom, rec.ValidUntil,
	).Scan(&conflictingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return conflictingID, nil
}

func (r *repository) Insert(ctx context.Context, rec OverrideRecord) error {
	const query = `INSERT INTO pricing_overrides
		(id, client_id, product_id, category_name, discount_percent, fixed_price,
		 minimum_quantity, valid_from, valid_until, is_active, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.ClientID, rec.ProductID, rec.CategoryName,
		rec.DiscountPercent, rec.FixedPrice, rec.MinimumQuantity,
		rec.ValidFrom, rec.ValidUntil, rec.IsActive, rec.Notes, rec.CreatedBy,
	)
	return mapConstraintError(err)
}

func (r *repository) Update(ctx context.Context, rec OverrideRecord) error {
	const query = `UPDATE pricing_overrides SET
		product_id = $2, category_name = $3, discount_percent = $4, fixed_price = $5,
		minimum_quantity = $6, valid_from = $7, valid_until = $8, is_active = $9,
		notes = $10, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		rec.ID, rec.ProductID, rec.CategoryName, rec.DiscountPercent, rec.FixedPrice,
		rec.MinimumQuantity, rec.ValidFrom, rec.ValidUntil, rec.IsActive, rec.Notes,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE pricing_overrides SET is_active = $2, updated_at = NOW() WHERE id = $1",
		id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM pricing_overrides WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendAudit writes the entry through the repository's current connection,
// so inside WithTx the audit row commits or rolls back with the mutation.
func (r *repository) AppendAudit(ctx context.Context, entry audit.Entry) error {
	return audit.NewLogger(r.db).Record(ctx, entry)
}

// mapConstraintError converts an exclusion-constraint violation raised by the
// overlap guard into ErrConflict.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == ExclusionConstraintName {
		return fmt.Errorf("%w: validity window overlaps an active rule", ErrConflict)
	}
	return err
}
