package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lucasmorforio/ubalerta/internal/middleware"
	"github.com/lucasmorforio/ubalerta/internal/moderation"
	"github.com/lucasmorforio/ubalerta/internal/model"
)

// ReportServiceInterface は通報ハンドラーが必要とするサービスインターフェース。
type ReportServiceInterface interface {
	// SubmitReport は通報を投稿する。マーカーごとに1件のReportが作られる。
	SubmitReport(ctx context.Context, user *model.User, input moderation.SubmitReportInput) ([]*model.Report, error)
	// FlagReport は通報に虚偽の旗を立て、更新後の旗数を返す。
	FlagReport(ctx context.Context, user *model.User, reportID string) (int, error)
	// DeleteReport は通報を削除する（管理者のみ）。
	DeleteReport(ctx context.Context, user *model.User, reportID string) error
}

// ReportHandler は通報の投稿・旗立て・削除のHTTPハンドラー。
type ReportHandler struct {
	service ReportServiceInterface
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(service ReportServiceInterface) *ReportHandler {
	return &ReportHandler{service: service}
}

// markerRequest は投稿リクエスト内の地点マーカー。
type markerRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// submitReportRequest は通報投稿リクエストのボディ。
type submitReportRequest struct {
	StreetID    string          `json:"street_id"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	Markers     []markerRequest `json:"markers"`
}

// reportResponse は通報1件のAPIレスポンス。
type reportResponse struct {
	ID          string   `json:"id"`
	StreetID    string   `json:"street_id"`
	Status      string   `json:"status"`
	Description string   `json:"description"`
	IsOfficial  bool     `json:"is_official"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// flagResponse は旗立て結果のAPIレスポンス。
type flagResponse struct {
	ReportID  string `json:"report_id"`
	FlagCount int    `json:"flag_count"`
}

// Submit は通報を投稿する。
// POST /api/reports
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("corpo da requisição inválido"))
		return
	}

	markers := make([]model.Coordinate, 0, len(req.Markers))
	for _, m := range req.Markers {
		markers = append(markers, model.Coordinate{Lat: m.Lat, Lng: m.Lng})
	}

	reports, err := h.service.SubmitReport(r.Context(), user, moderation.SubmitReportInput{
		StreetID:    req.StreetID,
		Status:      model.ReportStatus(req.Status),
		Description: req.Description,
		Markers:     markers,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]reportResponse, 0, len(reports))
	for _, report := range reports {
		resp = append(resp, toReportResponse(report))
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Flag は通報に虚偽の旗を立てる。
// POST /api/reports/{id}/flag
func (h *ReportHandler) Flag(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	reportID := chi.URLParam(r, "id")

	flagCount, err := h.service.FlagReport(r.Context(), user, reportID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, flagResponse{
		ReportID:  reportID,
		FlagCount: flagCount,
	})
}

// Delete は通報を削除する。管理者以上のみ。
// DELETE /api/reports/{id}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	reportID := chi.URLParam(r, "id")

	if err := h.service.DeleteReport(r.Context(), user, reportID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toReportResponse はmodel.ReportからAPIレスポンスに変換する。
func toReportResponse(report *model.Report) reportResponse {
	return reportResponse{
		ID:          report.ID,
		StreetID:    report.StreetID,
		Status:      string(report.Status),
		Description: report.Description,
		IsOfficial:  report.IsOfficial,
		Lat:         report.Lat,
		Lng:         report.Lng,
	}
}
