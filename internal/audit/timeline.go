package audit

import (
	"context"
	"fmt"
	"time"
)

// TimelineFilters narrows the audit timeline query.
type TimelineFilters struct {
	EventType string
	EntityID  string
	From      time.Time
	To        time.Time
	Page      int
	PageSize  int
}

// TimelineRow is one audit entry as shown on the admin timeline.
type TimelineRow struct {
	ID        int64          `json:"id"`
	EventType string         `json:"event_type"`
	ActorID   string         `json:"actor_id"`
	EntityID  string         `json:"entity_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"at"`
}

// PagingInfo describes the page returned by Timeline.
type PagingInfo struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// Repository provides the timeline queries.
type Repository interface {
	TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, int, error)
}

// Service coordinates audit timeline reads.
type Service struct {
	repo Repository
}

// NewService creates a timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches audit entries with paging. Page sizes are capped at 100.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s == nil || s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, total, err := s.repo.TimelineWindow(ctx, filters, pageSize, offset)
	if err != nil {
		return Result{}, fmt.Errorf("audit: timeline query: %w", err)
	}
	return Result{
		Rows: rows,
		Paging: PagingInfo{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}
