package reports

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

// RepositoryPort defines data access methods for reports.
type RepositoryPort interface {
	ListByOwner(ctx context.Context, userID string) ([]Report, error)
	Get(ctx context.Context, id string) (Report, error)
	Create(ctx context.Context, userID string, in CreateInput) (Report, error)
	Update(ctx context.Context, id, title, content string) (Report, error)
	Delete(ctx context.Context, id string) error
}

// Service enforces report ownership.
type Service struct {
	repo   RepositoryPort
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns the caller's reports.
func (s *Service) List(ctx context.Context, userID string) ([]Report, error) {
	return s.repo.ListByOwner(ctx, userID)
}

// Create stores a report owned by userID.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput, meta shared.AuditLog) (Report, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return Report{}, httpx.NewError(httpx.ErrValidation, "Title is required")
	}
	rep, err := s.repo.Create(ctx, userID, in)
	if err != nil {
		return Report{}, err
	}
	s.record(ctx, meta, userID, "create", rep.ID)
	return rep, nil
}

// Get returns the report when userID owns it. Foreign and missing reports
// are indistinguishable.
func (s *Service) Get(ctx context.Context, userID, id string) (Report, error) {
	rep, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Report{}, httpx.NewError(httpx.ErrNotFound, "Report not found")
		}
		return Report{}, err
	}
	if rep.UserID != userID {
		return Report{}, httpx.NewError(httpx.ErrNotFound, "Report not found")
	}
	return rep, nil
}

// Update edits a report the caller owns.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput, meta shared.AuditLog) (Report, error) {
	existing, err := s.owned(ctx, userID, id)
	if err != nil {
		return Report{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = existing.Title
	}
	content := existing.Content
	if in.Content != nil {
		content = *in.Content
	}
	rep, err := s.repo.Update(ctx, id, title, content)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Report{}, httpx.NewError(httpx.ErrForbidden, "Unauthorized or not found")
		}
		return Report{}, err
	}
	s.record(ctx, meta, userID, "update", id)
	return rep, nil
}

// Delete removes a report the caller owns.
func (s *Service) Delete(ctx context.Context, userID, id string, meta shared.AuditLog) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpx.NewError(httpx.ErrForbidden, "Unauthorized or not found")
		}
		return err
	}
	s.record(ctx, meta, userID, "delete", id)
	return nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (Report, error) {
	rep, err := s.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Report{}, err
	}
	if err != nil || rep.UserID != userID {
		return Report{}, httpx.NewError(httpx.ErrForbidden, "Unauthorized or not found")
	}
	return rep, nil
}

func (s *Service) record(ctx context.Context, meta shared.AuditLog, userID, action, id string) {
	meta.UserID = userID
	meta.Action = action
	meta.Resource = "report"
	meta.Details = map[string]any{"reportId": id}
	shared.RecordBestEffort(ctx, s.audit, s.logger, meta)
}
