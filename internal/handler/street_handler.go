package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lucasmorforio/ubalerta/internal/model"
	"github.com/lucasmorforio/ubalerta/internal/street"
)

// StreetServiceInterface は道路ハンドラーが必要とするサービスインターフェース。
type StreetServiceInterface interface {
	// Search は名称の部分一致で道路を検索する。
	Search(ctx context.Context, query string) ([]*model.Street, error)
	// StreetGeometry は道路の形状をGeoJSONで取得する。
	StreetGeometry(ctx context.Context, streetID string) (*street.Geometry, error)
}

// StreetHandler は道路の検索・形状取得のHTTPハンドラー。
type StreetHandler struct {
	service StreetServiceInterface
}

// NewStreetHandler はStreetHandlerを生成する。
func NewStreetHandler(service StreetServiceInterface) *StreetHandler {
	return &StreetHandler{service: service}
}

// streetResponse は道路情報のAPIレスポンス。
type streetResponse struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// coordinateResponse は緯度経度ペアのAPIレスポンス。
type coordinateResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// geometryResponse は道路形状のAPIレスポンス。
// 形状が見つからない場合、successは偽でgeojsonはnullになり、
// centerの代表座標に地図を寄せる。
type geometryResponse struct {
	Success bool                    `json:"success"`
	GeoJSON *street.MultiLineString `json:"geojson"`
	Center  coordinateResponse      `json:"center"`
}

// Search は道路を名称で検索する。認証不要の公開エンドポイント。
// GET /api/streets/search?q=beira+rio
func (h *StreetHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	streets, err := h.service.Search(r.Context(), query)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]streetResponse, 0, len(streets))
	for _, s := range streets {
		resp = append(resp, streetResponse{
			ID:   s.ID,
			Name: s.Name,
			Lat:  s.Lat,
			Lng:  s.Lng,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Geometry は道路の形状をGeoJSONで返す。認証不要の公開エンドポイント。
// GET /api/streets/{id}/geometry
func (h *StreetHandler) Geometry(w http.ResponseWriter, r *http.Request) {
	streetID := chi.URLParam(r, "id")

	geometry, err := h.service.StreetGeometry(r.Context(), streetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, geometryResponse{
		Success: geometry.Success,
		GeoJSON: geometry.GeoJSON,
		Center: coordinateResponse{
			Lat: geometry.Center.Lat,
			Lng: geometry.Center.Lng,
		},
	})
}
