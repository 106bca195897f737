// Package street は道路の検索と形状取得のロジックを提供する。
package street

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucasmorforio/ubalerta/internal/model"
	"github.com/lucasmorforio/ubalerta/internal/repository"
)

// searchLimit は検索結果の最大件数。
const searchLimit = 20

// GeometryProvider は道路の形状を取得するインターフェース。
// 該当なしの場合は空スライスを返す。
type GeometryProvider interface {
	StreetGeometry(ctx context.Context, streetName string) ([][]model.Coordinate, error)
}

// MultiLineString はGeoJSONのMultiLineStringジオメトリ。
// 座標の順序はGeoJSON仕様に従い [経度, 緯度]。
type MultiLineString struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// Geometry は道路形状の取得結果。
type Geometry struct {
	// Success は形状が見つかったかを示す。falseの場合GeoJSONはnilで、
	// Centerには道路の代表座標が入る。
	Success bool
	GeoJSON *MultiLineString
	Center  model.Coordinate
}

// Service は道路の検索・形状取得ロジックを提供する。
type Service struct {
	streetRepo repository.StreetRepository
	geometry   GeometryProvider
}

// NewService はServiceを生成する。
func NewService(streetRepo repository.StreetRepository, geometry GeometryProvider) *Service {
	return &Service{
		streetRepo: streetRepo,
		geometry:   geometry,
	}
}

// Search は検索文字列を空白で分かち、全単語がAND条件で部分一致する道路を返す。
// 空の検索文字列には空結果を返す。結果は最大20件。
func (s *Service) Search(ctx context.Context, query string) ([]*model.Street, error) {
	words := strings.Fields(query)
	if len(words) == 0 {
		return nil, nil
	}

	streets, err := s.streetRepo.Search(ctx, words, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search streets: %w", err)
	}
	return streets, nil
}

// StreetGeometry は指定道路の形状をGeoJSONで返す。
// OSMに形状がない場合や取得に失敗した場合は、道路の代表座標を中心として
// Success=falseで返す（地図側はピン表示にフォールバックする）。
func (s *Service) StreetGeometry(ctx context.Context, streetID string) (*Geometry, error) {
	street, err := s.streetRepo.FindByID(ctx, streetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find street: %w", err)
	}
	if street == nil {
		return nil, model.NewStreetNotFoundError(streetID)
	}

	fallback := &Geometry{
		Success: false,
		Center:  model.Coordinate{Lat: street.Lat, Lng: street.Lng},
	}

	lines, err := s.geometry.StreetGeometry(ctx, street.Name)
	if err != nil {
		// 外部サービスの障害は形状なしと同じ扱いにし、リクエストは成功させる
		return fallback, nil
	}
	if len(lines) == 0 {
		return fallback, nil
	}

	geojson := &MultiLineString{
		Type:        "MultiLineString",
		Coordinates: make([][][2]float64, 0, len(lines)),
	}
	for _, line := range lines {
		coords := make([][2]float64, 0, len(line))
		for _, point := range line {
			coords = append(coords, [2]float64{point.Lng, point.Lat})
		}
		geojson.Coordinates = append(geojson.Coordinates, coords)
	}

	// 中心は形状の有無にかかわらず道路の代表座標を返す
	return &Geometry{
		Success: true,
		GeoJSON: geojson,
		Center:  model.Coordinate{Lat: street.Lat, Lng: street.Lng},
	}, nil
}
