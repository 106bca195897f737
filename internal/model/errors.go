// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, moderation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthRequired   = "AUTH_REQUIRED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeAccountBanned  = "ACCOUNT_BANNED"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeDuplicateFlag  = "DUPLICATE_FLAG"
	ErrCodeOfficialReport = "OFFICIAL_REPORT"
	ErrCodeStreetNotFound = "STREET_NOT_FOUND"
	ErrCodeReportNotFound = "REPORT_NOT_FOUND"
	ErrCodeAlreadyOwner   = "ALREADY_OWNER"
)

// NewAuthRequiredError は未認証エラーを生成する。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthRequired,
		Message:  "Faça login com Google para continuar.",
		Category: "auth",
		Action:   "Entre com sua conta Google e tente novamente.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Permissão negada.",
		Category: "auth",
		Action:   "Esta operação exige um nível de permissão maior.",
	}
}

// NewAccountBannedError はBANされたアカウントによる操作のエラーを生成する。
func NewAccountBannedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountBanned,
		Message:  "Sua conta foi banida por infrações.",
		Category: "auth",
		Action:   "Entre em contato com a administração para contestar.",
	}
}

// NewInvalidRequestError は入力不備エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Dados inválidos: %s", reason),
		Category: "validation",
		Action:   "Verifique os campos enviados e tente novamente.",
	}
}

// NewDuplicateFlagError は同一通報への二重旗立てエラーを生成する。
func NewDuplicateFlagError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateFlag,
		Message:  "Você já denunciou este alerta.",
		Category: "moderation",
		Action:   "Cada alerta pode ser denunciado apenas uma vez por conta.",
	}
}

// NewOfficialReportError は公式通報への旗立てエラーを生成する。
func NewOfficialReportError() *APIError {
	return &APIError{
		Code:     ErrCodeOfficialReport,
		Message:  "Alertas oficiais não podem ser denunciados.",
		Category: "moderation",
		Action:   "Denúncias são aceitas apenas para alertas da comunidade.",
	}
}

// NewStreetNotFoundError は道路未検出エラーを生成する。
func NewStreetNotFoundError(streetID string) *APIError {
	return &APIError{
		Code:     ErrCodeStreetNotFound,
		Message:  fmt.Sprintf("Rua não encontrada: %s", streetID),
		Category: "validation",
		Action:   "Verifique o identificador da rua.",
	}
}

// NewReportNotFoundError は通報未検出エラーを生成する。
func NewReportNotFoundError(reportID string) *APIError {
	return &APIError{
		Code:     ErrCodeReportNotFound,
		Message:  fmt.Sprintf("Alerta não encontrado: %s", reportID),
		Category: "validation",
		Action:   "Verifique o identificador do alerta.",
	}
}

// NewAlreadyOwnerError は運営者に対する昇格操作のエラーを生成する。
func NewAlreadyOwnerError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyOwner,
		Message:  fmt.Sprintf("A conta %s já é proprietária do sistema.", email),
		Category: "validation",
		Action:   "Contas proprietárias não podem ser rebaixadas para admin.",
	}
}
