package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lucasmorforio/ubalerta/internal/middleware"
	"github.com/lucasmorforio/ubalerta/internal/moderation"
	"github.com/lucasmorforio/ubalerta/internal/model"
)

// --- モック定義 ---

// mockReportService はReportServiceInterfaceのモック実装。
type mockReportService struct {
	submitReportFn func(ctx context.Context, user *model.User, input moderation.SubmitReportInput) ([]*model.Report, error)
	flagReportFn   func(ctx context.Context, user *model.User, reportID string) (int, error)
	deleteReportFn func(ctx context.Context, user *model.User, reportID string) error
}

func (m *mockReportService) SubmitReport(ctx context.Context, user *model.User, input moderation.SubmitReportInput) ([]*model.Report, error) {
	if m.submitReportFn != nil {
		return m.submitReportFn(ctx, user, input)
	}
	return nil, nil
}

func (m *mockReportService) FlagReport(ctx context.Context, user *model.User, reportID string) (int, error) {
	if m.flagReportFn != nil {
		return m.flagReportFn(ctx, user, reportID)
	}
	return 0, nil
}

func (m *mockReportService) DeleteReport(ctx context.Context, user *model.User, reportID string) error {
	if m.deleteReportFn != nil {
		return m.deleteReportFn(ctx, user, reportID)
	}
	return nil
}

// --- テストヘルパー ---

// withUser はテスト用にリクエストコンテキストに認証済みユーザーを注入するヘルパー。
func withUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), user))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func residentUser() *model.User {
	return &model.User{ID: "user-123", Email: "morador@example.com", Role: model.RoleResident}
}

// --- POST /api/reports テスト ---

func TestReportHandler_Submit_Success(t *testing.T) {
	svc := &mockReportService{
		submitReportFn: func(ctx context.Context, user *model.User, input moderation.SubmitReportInput) ([]*model.Report, error) {
			if user.ID != "user-123" {
				t.Errorf("user.ID = %q, want %q", user.ID, "user-123")
			}
			if input.StreetID != "street-1" {
				t.Errorf("StreetID = %q, want %q", input.StreetID, "street-1")
			}
			if input.Status != model.StatusTotal {
				t.Errorf("Status = %q, want %q", input.Status, model.StatusTotal)
			}
			if len(input.Markers) != 2 {
				t.Fatalf("len(Markers) = %d, want 2", len(input.Markers))
			}
			if input.Markers[0].Lat != -21.12 {
				t.Errorf("Markers[0].Lat = %f, want -21.12", input.Markers[0].Lat)
			}
			lat := -21.12
			lng := -42.94
			return []*model.Report{
				{ID: "report-1", StreetID: "street-1", Status: model.StatusTotal, Lat: &lat, Lng: &lng},
				{ID: "report-2", StreetID: "street-1", Status: model.StatusTotal},
			}, nil
		},
	}

	h := NewReportHandler(svc)

	body := `{"street_id": "street-1", "status": "total", "description": "rua alagada", "markers": [{"lat": -21.12, "lng": -42.94}, {"lat": -21.13, "lng": -42.95}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUser(req, residentUser())
	w := httptest.NewRecorder()

	h.Submit(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var result []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("len(result) = %d, want 2", len(result))
	}
	if result[0]["id"] != "report-1" {
		t.Errorf("id = %v, want %q", result[0]["id"], "report-1")
	}
}

func TestReportHandler_Submit_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewReportHandler(&mockReportService{})

	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString("{invalid"))
	req = withUser(req, residentUser())
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestReportHandler_Submit_NoUser_ReturnsUnauthorized(t *testing.T) {
	h := NewReportHandler(&mockReportService{})

	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestReportHandler_Submit_StreetNotFound_Returns404(t *testing.T) {
	svc := &mockReportService{
		submitReportFn: func(ctx context.Context, user *model.User, input moderation.SubmitReportInput) ([]*model.Report, error) {
			return nil, model.NewStreetNotFoundError(input.StreetID)
		},
	}
	h := NewReportHandler(svc)

	body := `{"street_id": "missing", "status": "total"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString(body))
	req = withUser(req, residentUser())
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeStreetNotFound {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeStreetNotFound)
	}
}

func TestReportHandler_Submit_BannedUser_Returns403(t *testing.T) {
	svc := &mockReportService{
		submitReportFn: func(ctx context.Context, user *model.User, input moderation.SubmitReportInput) ([]*model.Report, error) {
			return nil, model.NewAccountBannedError()
		},
	}
	h := NewReportHandler(svc)

	body := `{"street_id": "street-1", "status": "total"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString(body))
	req = withUser(req, residentUser())
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

// --- POST /api/reports/{id}/flag テスト ---

func TestReportHandler_Flag_Success(t *testing.T) {
	svc := &mockReportService{
		flagReportFn: func(ctx context.Context, user *model.User, reportID string) (int, error) {
			if reportID != "report-1" {
				t.Errorf("reportID = %q, want %q", reportID, "report-1")
			}
			return 3, nil
		},
	}
	h := NewReportHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/report-1/flag", nil)
	req = withUser(req, residentUser())
	req = withChiURLParam(req, "id", "report-1")
	w := httptest.NewRecorder()

	h.Flag(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["flag_count"] != float64(3) {
		t.Errorf("flag_count = %v, want 3", result["flag_count"])
	}
	if result["report_id"] != "report-1" {
		t.Errorf("report_id = %v, want %q", result["report_id"], "report-1")
	}
}

func TestReportHandler_Flag_Duplicate_ReturnsBadRequest(t *testing.T) {
	svc := &mockReportService{
		flagReportFn: func(ctx context.Context, user *model.User, reportID string) (int, error) {
			return 0, model.NewDuplicateFlagError()
		},
	}
	h := NewReportHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/report-1/flag", nil)
	req = withUser(req, residentUser())
	req = withChiURLParam(req, "id", "report-1")
	w := httptest.NewRecorder()

	h.Flag(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeDuplicateFlag {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeDuplicateFlag)
	}
}

func TestReportHandler_Flag_OfficialReport_Returns403(t *testing.T) {
	svc := &mockReportService{
		flagReportFn: func(ctx context.Context, user *model.User, reportID string) (int, error) {
			return 0, model.NewOfficialReportError()
		},
	}
	h := NewReportHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/official-1/flag", nil)
	req = withUser(req, residentUser())
	req = withChiURLParam(req, "id", "official-1")
	w := httptest.NewRecorder()

	h.Flag(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestReportHandler_Flag_InternalError_Returns500(t *testing.T) {
	svc := &mockReportService{
		flagReportFn: func(ctx context.Context, user *model.User, reportID string) (int, error) {
			return 0, errors.New("db down")
		},
	}
	h := NewReportHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/report-1/flag", nil)
	req = withUser(req, residentUser())
	req = withChiURLParam(req, "id", "report-1")
	w := httptest.NewRecorder()

	h.Flag(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

// --- DELETE /api/reports/{id} テスト ---

func TestReportHandler_Delete_Success(t *testing.T) {
	deleted := false
	svc := &mockReportService{
		deleteReportFn: func(ctx context.Context, user *model.User, reportID string) error {
			deleted = true
			if reportID != "report-1" {
				t.Errorf("reportID = %q, want %q", reportID, "report-1")
			}
			return nil
		},
	}
	h := NewReportHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/reports/report-1", nil)
	req = withUser(req, &model.User{ID: "admin-1", Role: model.RoleAdmin})
	req = withChiURLParam(req, "id", "report-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if !deleted {
		t.Error("expected service delete to be called")
	}
}

func TestReportHandler_Delete_NotFound_Returns404(t *testing.T) {
	svc := &mockReportService{
		deleteReportFn: func(ctx context.Context, user *model.User, reportID string) error {
			return model.NewReportNotFoundError(reportID)
		},
	}
	h := NewReportHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/reports/missing", nil)
	req = withUser(req, &model.User{ID: "admin-1", Role: model.RoleAdmin})
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}
