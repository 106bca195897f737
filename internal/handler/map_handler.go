package handler

import (
	"context"
	"net/http"

	"github.com/lucasmorforio/ubalerta/internal/mapfeed"
)

// MapFeedServiceInterface は地図フィードハンドラーが必要とするサービスインターフェース。
type MapFeedServiceInterface interface {
	ListFeed(ctx context.Context) ([]mapfeed.FeedItem, error)
}

// MapHandler は公開地図フィードのHTTPハンドラー。
type MapHandler struct {
	service MapFeedServiceInterface
}

// NewMapHandler はMapHandlerを生成する。
func NewMapHandler(service MapFeedServiceInterface) *MapHandler {
	return &MapHandler{service: service}
}

// feedItemResponse は地図フィード1件のAPIレスポンス。
type feedItemResponse struct {
	ReportID    string  `json:"report_id"`
	StreetID    string  `json:"street_id"`
	Title       string  `json:"title"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Status      string  `json:"status"`
	Description string  `json:"description"`
	IsOfficial  bool    `json:"is_official"`
	Source      string  `json:"source"`
	AuthorRole  string  `json:"author_role,omitempty"`
}

// ListFeed は地図に表示する全アラートを返す。認証不要の公開エンドポイント。
// GET /api/map-data
func (h *MapHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListFeed(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]feedItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, feedItemResponse{
			ReportID:    item.ReportID,
			StreetID:    item.StreetID,
			Title:       item.Title,
			Lat:         item.Lat,
			Lng:         item.Lng,
			Status:      string(item.Status),
			Description: item.Description,
			IsOfficial:  item.IsOfficial,
			Source:      item.Source,
			AuthorRole:  string(item.AuthorRole),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
