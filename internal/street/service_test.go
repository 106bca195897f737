package street

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/lucasmorforio/ubalerta/internal/model"
	"github.com/lucasmorforio/ubalerta/internal/repository"
)

type mockStreetRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Street, error)
	searchFn   func(ctx context.Context, words []string, limit int) ([]*model.Street, error)
}

func (m *mockStreetRepo) FindByID(ctx context.Context, id string) (*model.Street, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockStreetRepo) FindByNameLike(ctx context.Context, fragment string) (*model.Street, error) {
	return nil, nil
}

func (m *mockStreetRepo) Search(ctx context.Context, words []string, limit int) ([]*model.Street, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, words, limit)
	}
	return nil, nil
}

func (m *mockStreetRepo) Create(ctx context.Context, street *model.Street) error { return nil }
func (m *mockStreetRepo) Delete(ctx context.Context, id string) error            { return nil }
func (m *mockStreetRepo) UpsertBatch(ctx context.Context, streets []*model.Street) error {
	return nil
}
func (m *mockStreetRepo) ReplaceAll(ctx context.Context, streets []*model.Street) error {
	return nil
}

type mockGeometryProvider struct {
	streetGeometryFn func(ctx context.Context, streetName string) ([][]model.Coordinate, error)
}

func (m *mockGeometryProvider) StreetGeometry(ctx context.Context, streetName string) ([][]model.Coordinate, error) {
	if m.streetGeometryFn != nil {
		return m.streetGeometryFn(ctx, streetName)
	}
	return nil, nil
}

var _ repository.StreetRepository = (*mockStreetRepo)(nil)
var _ GeometryProvider = (*mockGeometryProvider)(nil)

// --- Search ---

// TestSearch_TokenizesQuery は検索文字列が空白で分かたれ、全単語がリポジトリに渡ることを検証する。
func TestSearch_TokenizesQuery(t *testing.T) {
	var gotWords []string
	var gotLimit int
	repo := &mockStreetRepo{
		searchFn: func(ctx context.Context, words []string, limit int) ([]*model.Street, error) {
			gotWords = words
			gotLimit = limit
			return []*model.Street{{ID: "s-1", Name: "Avenida Beira-Rio"}}, nil
		},
	}
	svc := NewService(repo, &mockGeometryProvider{})

	streets, err := svc.Search(context.Background(), "  avenida   beira  ")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if !reflect.DeepEqual(gotWords, []string{"avenida", "beira"}) {
		t.Errorf("unexpected words: %v", gotWords)
	}
	if gotLimit != searchLimit {
		t.Errorf("expected limit %d, got %d", searchLimit, gotLimit)
	}
	if len(streets) != 1 {
		t.Errorf("expected 1 street, got %d", len(streets))
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	var called bool
	repo := &mockStreetRepo{
		searchFn: func(ctx context.Context, words []string, limit int) ([]*model.Street, error) {
			called = true
			return nil, nil
		},
	}
	svc := NewService(repo, &mockGeometryProvider{})

	streets, err := svc.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if streets != nil {
		t.Errorf("expected nil result, got %v", streets)
	}
	if called {
		t.Error("repository must not be queried for empty search")
	}
}

// --- StreetGeometry ---

func TestStreetGeometry_BuildsGeoJSON(t *testing.T) {
	repo := &mockStreetRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Street, error) {
			return &model.Street{ID: "s-1", Name: "Avenida Beira-Rio", Lat: -21.12, Lng: -42.94}, nil
		},
	}
	provider := &mockGeometryProvider{
		streetGeometryFn: func(ctx context.Context, streetName string) ([][]model.Coordinate, error) {
			if streetName != "Avenida Beira-Rio" {
				t.Errorf("unexpected street name: %s", streetName)
			}
			return [][]model.Coordinate{
				{{Lat: -21.10, Lng: -42.90}, {Lat: -21.20, Lng: -42.92}},
				{{Lat: -21.30, Lng: -42.94}, {Lat: -21.40, Lng: -42.96}},
			}, nil
		},
	}
	svc := NewService(repo, provider)

	geometry, err := svc.StreetGeometry(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("StreetGeometry returned error: %v", err)
	}
	if !geometry.Success {
		t.Fatal("expected success")
	}
	if geometry.GeoJSON.Type != "MultiLineString" {
		t.Errorf("unexpected geometry type: %s", geometry.GeoJSON.Type)
	}
	if len(geometry.GeoJSON.Coordinates) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(geometry.GeoJSON.Coordinates))
	}
	// GeoJSONは[経度, 緯度]の順
	first := geometry.GeoJSON.Coordinates[0][0]
	if first[0] != -42.90 || first[1] != -21.10 {
		t.Errorf("expected [lng, lat] order, got %v", first)
	}
	// 中心は形状があっても道路の代表座標
	if geometry.Center.Lat != -21.12 || geometry.Center.Lng != -42.94 {
		t.Errorf("expected street coordinate as center, got %+v", geometry.Center)
	}
}

// TestStreetGeometry_FallbackWhenNoShape は形状なしの場合に代表座標が返ることを検証する。
func TestStreetGeometry_FallbackWhenNoShape(t *testing.T) {
	repo := &mockStreetRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Street, error) {
			return &model.Street{ID: "s-1", Name: "Rua Sem Forma", Lat: -21.12, Lng: -42.94}, nil
		},
	}
	svc := NewService(repo, &mockGeometryProvider{})

	geometry, err := svc.StreetGeometry(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("StreetGeometry returned error: %v", err)
	}
	if geometry.Success {
		t.Error("expected success=false for missing shape")
	}
	if geometry.Center.Lat != -21.12 || geometry.Center.Lng != -42.94 {
		t.Errorf("expected street coordinate as center, got %+v", geometry.Center)
	}
}

// TestStreetGeometry_FallbackOnProviderError は外部サービス障害時もリクエストが成功することを検証する。
func TestStreetGeometry_FallbackOnProviderError(t *testing.T) {
	repo := &mockStreetRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Street, error) {
			return &model.Street{ID: "s-1", Name: "MG-447", Lat: -21.12, Lng: -42.94}, nil
		},
	}
	provider := &mockGeometryProvider{
		streetGeometryFn: func(ctx context.Context, streetName string) ([][]model.Coordinate, error) {
			return nil, errors.New("overpass timeout")
		},
	}
	svc := NewService(repo, provider)

	geometry, err := svc.StreetGeometry(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("StreetGeometry returned error: %v", err)
	}
	if geometry.Success {
		t.Error("expected success=false on provider error")
	}
}

func TestStreetGeometry_StreetNotFound(t *testing.T) {
	svc := NewService(&mockStreetRepo{}, &mockGeometryProvider{})

	_, err := svc.StreetGeometry(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeStreetNotFound {
		t.Errorf("expected STREET_NOT_FOUND, got %s", apiErr.Code)
	}
}
