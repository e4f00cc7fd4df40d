package overrides

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-pricing/internal/audit"
)

// Invalidator is notified after a committed mutation so cached candidate
// lists can be dropped.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service is the override registry: it owns the correctness of the stored
// rule set. Every mutation re-validates the record, checks for overlapping
// active rules, and writes its audit entry inside the same transaction.
type Service struct {
	repo        Repository
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo Repository, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req CreateOverrideRequest, actorID string) (*OverrideRecord, error) {
	now := s.now()

	rec := OverrideRecord{
		ID:              uuid.NewString(),
		ClientID:        req.ClientID,
		ProductID:       req.ProductID,
		CategoryName:    req.CategoryName,
		DiscountPercent: req.DiscountPercent,
		FixedPrice:      req.FixedPrice,
		MinimumQuantity: req.MinimumQuantity,
		ValidFrom:       now,
		ValidUntil:      req.ValidUntil,
		IsActive:        true,
		Notes:           req.Notes,
		CreatedBy:       actorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.ValidFrom != nil {
		rec.ValidFrom = *req.ValidFrom
	}
	if rec.MinimumQuantity == 0 {
		rec.MinimumQuantity = 1
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		conflictingID, err := repo.FindOverlapping(ctx, rec)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if conflictingID != "" {
			return &ConflictError{ConflictingID: conflictingID}
		}
		if err := repo.Insert(ctx, rec); err != nil {
			return fmt.Errorf("insert override: %w", err)
		}
		return repo.AppendAudit(ctx, audit.Entry{
			EventType: audit.EventOverrideCreated,
			ActorID:   actorID,
			EntityID:  rec.ID,
			Payload:   auditPayload(rec),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCandidates(ctx)
	return s.repo.Get(ctx, rec.ID)
}

func (s *Service) Update(ctx context.Context, id string, patch UpdateOverrideRequest, actorID string) (*OverrideRecord, error) {
	var updated *OverrideRecord

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		rec, err := repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get override: %w", err)
		}

		applyPatch(rec, patch)
		rec.UpdatedAt = s.now()

		if err := rec.Validate(); err != nil {
			return err
		}

		// Deactivated records never conflict, so only re-check active ones.
		if rec.IsActive {
			conflictingID, err := repo.FindOverlapping(ctx, *rec)
			if err != nil {
				return fmt.Errorf("check overlap: %w", err)
			}
			if conflictingID != "" {
				return &ConflictError{ConflictingID: conflictingID}
			}
		}

		if err := repo.Update(ctx, *rec); err != nil {
			return fmt.Errorf("update override: %w", err)
		}
		updated = rec
		return repo.AppendAudit(ctx, audit.Entry{
			EventType: audit.EventOverrideUpdated,
			ActorID:   actorID,
			EntityID:  rec.ID,
			Payload:   auditPayload(*rec),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCandidates(ctx)
	return updated, nil
}

// Deactivate flips is_active off. This is the standard disable path; the
// record stays stored for audit and history.
func (s *Service) Deactivate(ctx context.Context, id string, actorID string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return fmt.Errorf("get override: %w", err)
		}
		if err := repo.SetActive(ctx, id, false); err != nil {
			return fmt.Errorf("deactivate override: %w", err)
		}
		return repo.AppendAudit(ctx, audit.Entry{
			EventType: audit.EventOverrideDeactivated,
			ActorID:   actorID,
			EntityID:  id,
		})
	})
	if err != nil {
		return err
	}

	s.invalidateCandidates(ctx)
	return nil
}

// Delete removes the record permanently. Historical audit entries keep the
// id by value and are not touched.
func (s *Service) Delete(ctx context.Context, id string, actorID string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		rec, err := repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get override: %w", err)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete override: %w", err)
		}
		return repo.AppendAudit(ctx, audit.Entry{
			EventType: audit.EventOverrideDeleted,
			ActorID:   actorID,
			EntityID:  id,
			Payload:   auditPayload(*rec),
		})
	})
	if err != nil {
		return err
	}

	s.invalidateCandidates(ctx)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*OverrideRecord, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListOverridesRequest) ([]OverrideRecord, int, error) {
	return s.repo.List(ctx, req)
}

// ListCandidates exposes the resolver's candidate query.
func (s *Service) ListCandidates(ctx context.Context, clientID, productID, categoryName string) ([]OverrideRecord, error) {
	return s.repo.ListCandidates(ctx, clientID, productID, categoryName)
}

func (s *Service) invalidateCandidates(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("invalidate candidate cache", slog.Any("error", err))
	}
}

func applyPatch(rec *OverrideRecord, patch UpdateOverrideRequest) {
	if patch.ProductID != nil {
		rec.ProductID = patch.ProductID
		rec.CategoryName = nil
	}
	if patch.CategoryName != nil {
		rec.CategoryName = patch.CategoryName
		rec.ProductID = nil
	}
	if patch.DiscountPercent != nil {
		rec.DiscountPercent = patch.DiscountPercent
		rec.FixedPrice = nil
	}
	if patch.FixedPrice != nil {
		rec.FixedPrice = patch.FixedPrice
		rec.DiscountPercent = nil
	}
	if patch.MinimumQuantity != nil {
		rec.MinimumQuantity = *patch.MinimumQuantity
	}
	if patch.ValidFrom != nil {
		rec.ValidFrom = *patch.ValidFrom
	}
	if patch.ValidUntil != nil {
		rec.ValidUntil = patch.ValidUntil
	}
	if patch.RemoveValidUntil {
		rec.ValidUntil = nil
	}
	if patch.IsActive != nil {
		rec.IsActive = *patch.IsActive
	}
	if patch.Notes != nil {
		rec.Notes = patch.Notes
	}
}

func auditPayload(rec OverrideRecord) map[string]any {
	payload := map[string]any{
		"client_id":        rec.ClientID,
		"minimum_quantity": rec.MinimumQuantity,
		"valid_from":       rec.ValidFrom,
		"is_active":        rec.IsActive,
	}
	if rec.ProductID != nil {
		payload["product_id"] = *rec.ProductID
	}
	if rec.CategoryName != nil {
		payload["category_name"] = *rec.CategoryName
	}
	if rec.DiscountPercent != nil {
		payload["discount_percent"] = *rec.DiscountPercent
	}
	if rec.FixedPrice != nil {
		payload["fixed_price"] = *rec.FixedPrice
	}
	if rec.ValidUntil != nil {
		payload["valid_until"] = *rec.ValidUntil
	}
	return payload
}
