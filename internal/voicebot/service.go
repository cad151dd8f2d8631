package voicebot

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

// RepositoryPort defines data access methods for calls.
type RepositoryPort interface {
	Count(ctx context.Context, f Filter) (int, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]Call, error)
	Get(ctx context.Context, id string) (Call, error)
}

// Service reads voicebot calls.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns one page of matching calls and the pagination metadata. The
// count and the page are fetched concurrently.
func (s *Service) List(ctx context.Context, f Filter, page int) ([]Summary, shared.Pagination, error) {
	meta := shared.NewPagination(page, PageSize, 0)
	var (
		total int
		calls []Call
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.Count(gctx, f)
		total = n
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.List(gctx, f, meta.PerPage, meta.Offset())
		calls = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, shared.Pagination{}, err
	}
	out := make([]Summary, 0, len(calls))
	for _, c := range calls {
		out = append(out, SummaryOf(c))
	}
	return out, shared.NewPagination(meta.Page, PageSize, total), nil
}

// Get returns one call.
func (s *Service) Get(ctx context.Context, id string) (Call, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Call{}, httpx.NewError(httpx.ErrNotFound, "Record not found")
		}
		return Call{}, err
	}
	return c, nil
}

// Export returns the newest MaxExportRows matching calls.
func (s *Service) Export(ctx context.Context, f Filter) ([]Call, error) {
	return s.repo.List(ctx, f, MaxExportRows, 0)
}
