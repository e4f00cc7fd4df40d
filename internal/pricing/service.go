package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/meridian-erp/meridian-pricing/internal/audit"
	"github.com/meridian-erp/meridian-pricing/internal/overrides"
	"github.com/meridian-erp/meridian-pricing/internal/shared"
)

// CandidateSource supplies the active overrides matching a line item. It is
// satisfied by the override repository directly or by the Redis candidate
// cache in front of it.
type CandidateSource interface {
	ListCandidates(ctx context.Context, clientID, productID, categoryName string) ([]overrides.OverrideRecord, error)
}

// Escalator receives audit entries whose synchronous write failed, so they
// can be replayed out of band. Silent audit loss is a compliance risk.
type Escalator interface {
	EscalateAuditFailure(ctx context.Context, entry audit.Entry)
}

// Recorder counts resolution outcomes and audit write failures.
type Recorder interface {
	RecordResolution(outcome string)
	RecordAuditWriteFailure()
}

// Service resolves prices. It is stateless per call; all state lives in the
// override records it reads.
type Service struct {
	source    CandidateSource
	sink      audit.Sink
	escalator Escalator
	metrics   Recorder
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(source CandidateSource, sink audit.Sink, escalator Escalator, metrics Recorder, logger *slog.Logger) *Service {
	return &Service{
		source:    source,
		sink:      sink,
		escalator: escalator,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve computes the effective unit price for one line item. Product-scoped
// overrides always outrank category-scoped ones; within a pool the most
// recently created record wins, then the lexicographically greatest id. The
// tie-break only matters for data produced outside the registry (bulk
// imports), where the no-overlap invariant may not hold.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*PriceResolution, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, req.Quantity)
	}

	asOf := s.now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	candidates, err := s.source.ListCandidates(ctx, req.ClientID, req.ProductID, req.CategoryName)
	if err != nil {
		return nil, fmt.Errorf("pricing: list candidates: %w", err)
	}

	var productPool, categoryPool []overrides.OverrideRecord
	var sawQuantityGate, sawWindowMiss bool
	for _, rec := range candidates {
		if !rec.IsActive {
			continue
		}
		if req.Quantity < rec.MinimumQuantity {
			sawQuantityGate = true
			continue
		}
		if !rec.AppliesAt(asOf) {
			sawWindowMiss = true
			continue
		}
		if rec.TargetsProduct() {
			if *rec.ProductID == req.ProductID {
				productPool = append(productPool, rec)
			}
		} else if rec.CategoryName != nil && *rec.CategoryName == req.CategoryName {
			categoryPool = append(categoryPool, rec)
		}
	}

	pool := productPool
	if len(pool) == 0 {
		pool = categoryPool
	}

	res := &PriceResolution{
		BasePrice:  req.BasePrice,
		FinalPrice: req.BasePrice,
	}

	if len(pool) == 0 {
		switch {
		case sawQuantityGate:
			res.Reason = ReasonMinimumQuantity
		case sawWindowMiss:
			res.Reason = ReasonOutsideWindow
		default:
			res.Reason = ReasonNoRule
		}
	} else {
		chosen := pickRecord(pool)
		switch mode := chosen.Mode(); mode.Kind {
		case overrides.ModeFixedPrice:
			res.FinalPrice = mode.FixedPrice
		case overrides.ModePercentageDiscount:
			res.FinalPrice = round2(req.BasePrice - req.BasePrice*mode.DiscountPercent/100)
		}
		if res.FinalPrice < 0 {
			res.FinalPrice = 0
		}
		res.DiscountApplied = true
		res.DiscountAmount = round2(req.BasePrice - res.FinalPrice)
		id := chosen.ID
		res.AppliedRuleID = &id
	}

	if s.metrics != nil {
		s.metrics.RecordResolution(outcomeLabel(res))
	}

	// A cancelled caller gets no result and no audit entry.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.report(ctx, req, res, asOf)
	return res, nil
}

// report writes the resolution to the audit sink. Best-effort: a sink failure
// never blocks pricing, but it is counted and escalated for replay.
func (s *Service) report(ctx context.Context, req ResolveRequest, res *PriceResolution, asOf time.Time) {
	if s.sink == nil {
		return
	}

	entityID := req.ProductID
	payload := map[string]any{
		"client_id":   req.ClientID,
		"product_id":  req.ProductID,
		"quantity":    req.Quantity,
		"base_price":  res.BasePrice,
		"final_price": res.FinalPrice,
		"as_of":       asOf,
	}
	if req.CategoryName != "" {
		payload["category_name"] = req.CategoryName
	}
	if res.AppliedRuleID != nil {
		payload["applied_rule_id"] = *res.AppliedRuleID
		entityID = *res.AppliedRuleID
	} else {
		payload["reason"] = res.Reason
	}

	entry := audit.Entry{
		EventType: audit.EventPriceResolved,
		ActorID:   shared.ActorFromContext(ctx).ID,
		EntityID:  entityID,
		Payload:   payload,
		At:        s.now(),
	}

	if err := s.sink.Record(ctx, entry); err != nil {
		if s.logger != nil {
			s.logger.Error("resolution audit write failed", slog.Any("error", err))
		}
		if s.metrics != nil {
			s.metrics.RecordAuditWriteFailure()
		}
		if s.escalator != nil {
			s.escalator.EscalateAuditFailure(ctx, entry)
		}
	}
}

// pickRecord applies the defensive tie-break: latest CreatedAt, then greatest id.
func pickRecord(pool []overrides.OverrideRecord) overrides.OverrideRecord {
	chosen := pool[0]
	for _, rec := range pool[1:] {
		if rec.CreatedAt.After(chosen.CreatedAt) {
			chosen = rec
			continue
		}
		if rec.CreatedAt.Equal(chosen.CreatedAt) && rec.ID > chosen.ID {
			chosen = rec
		}
	}
	return chosen
}

func outcomeLabel(res *PriceResolution) string {
	if res.DiscountApplied {
		return "applied"
	}
	switch res.Reason {
	case ReasonMinimumQuantity:
		return "min_quantity"
	case ReasonOutsideWindow:
		return "outside_window"
	default:
		return "no_rule"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
