package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lucasmorforio/ubalerta/internal/middleware"
	"github.com/lucasmorforio/ubalerta/internal/model"
)

// AdminServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	// CreateStreet は道路を登録する（管理者のみ）。座標はジオコーディングで解決される。
	CreateStreet(ctx context.Context, user *model.User, name string) (*model.Street, error)
	// DeleteStreet は道路と紐付く通報を削除する（管理者のみ）。
	DeleteStreet(ctx context.Context, user *model.User, streetID string) error
	// PromoteAdmin は指定メールアドレスのアカウントを管理者に昇格する（運営者のみ）。
	PromoteAdmin(ctx context.Context, user *model.User, email string) (*model.User, error)
}

// AdminHandler は道路管理と権限昇格のHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// createStreetRequest は道路登録リクエストのボディ。
type createStreetRequest struct {
	Name string `json:"name"`
}

// promoteAdminRequest は管理者昇格リクエストのボディ。
type promoteAdminRequest struct {
	Email string `json:"email"`
}

// promoteAdminResponse は管理者昇格結果のAPIレスポンス。
type promoteAdminResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	// Ghost はGoogleアカウント未紐付けの事前登録アカウントかを示す。
	Ghost bool `json:"ghost"`
}

// CreateStreet は道路を登録する。
// POST /api/streets
func (h *AdminHandler) CreateStreet(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	var req createStreetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("corpo da requisição inválido"))
		return
	}

	street, err := h.service.CreateStreet(r.Context(), user, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, streetResponse{
		ID:   street.ID,
		Name: street.Name,
		Lat:  street.Lat,
		Lng:  street.Lng,
	})
}

// DeleteStreet は道路と紐付く全通報を削除する。
// DELETE /api/streets/{id}
func (h *AdminHandler) DeleteStreet(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	streetID := chi.URLParam(r, "id")

	if err := h.service.DeleteStreet(r.Context(), user, streetID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PromoteAdmin は指定メールアドレスのアカウントを管理者に昇格する。
// 未登録のメールアドレスの場合はゴーストアカウントが事前作成され、
// 本人の初回Googleログイン時に紐付けられる。
// POST /api/admins
func (h *AdminHandler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	var req promoteAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("corpo da requisição inválido"))
		return
	}
	if req.Email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("e-mail obrigatório"))
		return
	}

	promoted, err := h.service.PromoteAdmin(r.Context(), user, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, promoteAdminResponse{
		ID:    promoted.ID,
		Email: promoted.Email,
		Role:  string(promoted.Role),
		Ghost: promoted.IsGhost(),
	})
}
