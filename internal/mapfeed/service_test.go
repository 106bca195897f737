package mapfeed

import (
	"context"
	"errors"
	"testing"

	"github.com/lucasmorforio/ubalerta/internal/model"
	"github.com/lucasmorforio/ubalerta/internal/repository"
)

type mockReportRepo struct {
	listVisibleFn func(ctx context.Context, threshold int) ([]repository.MapFeedRow, error)
}

func (m *mockReportRepo) FindByID(ctx context.Context, id string) (*model.Report, error) {
	return nil, nil
}
func (m *mockReportRepo) FindFirstByStreetID(ctx context.Context, streetID string) (*model.Report, error) {
	return nil, nil
}
func (m *mockReportRepo) CreateBatch(ctx context.Context, reports []*model.Report) error { return nil }
func (m *mockReportRepo) MarkOfficial(ctx context.Context, id string, status model.ReportStatus) error {
	return nil
}
func (m *mockReportRepo) Delete(ctx context.Context, id string) error { return nil }
func (m *mockReportRepo) ListVisible(ctx context.Context, threshold int) ([]repository.MapFeedRow, error) {
	if m.listVisibleFn != nil {
		return m.listVisibleFn(ctx, threshold)
	}
	return nil, nil
}

var _ repository.ReportRepository = (*mockReportRepo)(nil)

// TestListFeed_UsesFlagThreshold はフィード取得が規定の閾値で行われることを検証する。
func TestListFeed_UsesFlagThreshold(t *testing.T) {
	var usedThreshold int
	repo := &mockReportRepo{
		listVisibleFn: func(ctx context.Context, threshold int) ([]repository.MapFeedRow, error) {
			usedThreshold = threshold
			return nil, nil
		},
	}
	svc := NewService(repo)

	if _, err := svc.ListFeed(context.Background()); err != nil {
		t.Fatalf("ListFeed returned error: %v", err)
	}
	if usedThreshold != model.FlagThreshold {
		t.Errorf("expected threshold %d, got %d", model.FlagThreshold, usedThreshold)
	}
}

// TestListFeed_SystemSourceSubstituted はシステム起票の行に固定の出典文が入ることを検証する。
func TestListFeed_SystemSourceSubstituted(t *testing.T) {
	repo := &mockReportRepo{
		listVisibleFn: func(ctx context.Context, threshold int) ([]repository.MapFeedRow, error) {
			return []repository.MapFeedRow{
				{ReportID: "r-1", Title: "MG-447", Source: "", IsOfficial: true},
				{ReportID: "r-2", Title: "Avenida Beira-Rio", Source: "Morador", AuthorRole: model.RoleResident},
			}, nil
		},
	}
	svc := NewService(repo)

	items, err := svc.ListFeed(context.Background())
	if err != nil {
		t.Fatalf("ListFeed returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Source != systemSource {
		t.Errorf("expected system source, got %q", items[0].Source)
	}
	if items[1].Source != "Morador" {
		t.Errorf("expected author name, got %q", items[1].Source)
	}
}

func TestListFeed_EmptyFeed(t *testing.T) {
	svc := NewService(&mockReportRepo{})

	items, err := svc.ListFeed(context.Background())
	if err != nil {
		t.Fatalf("ListFeed returned error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty feed, got %d items", len(items))
	}
}

func TestListFeed_RepoError(t *testing.T) {
	repo := &mockReportRepo{
		listVisibleFn: func(ctx context.Context, threshold int) ([]repository.MapFeedRow, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(repo)

	if _, err := svc.ListFeed(context.Background()); err == nil {
		t.Fatal("expected error from repository")
	}
}
