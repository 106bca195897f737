// Package auth はOAuth認証フロー、アカウント解決、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lucasmorforio/ubalerta/internal/model"
	"github.com/lucasmorforio/ubalerta/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	GoogleID string
	Email    string
	Name     string
	PhotoURL string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ownerEmails は初回ログイン時にオーナー役割を自動付与するメールアドレス。
// データベースのブートストラップに使用し、以降の役割変更は管理API経由で行う。
var ownerEmails = map[string]bool{
	"lucasmorforio@gmail.com":       true,
	"lucasmorforio.niuai@gmail.com": true,
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge time.Duration // セッション有効期間
}

// Service は認証に関するビジネスロジックを提供する。
// アカウント解決はGoogle ID→メールアドレス→新規作成の優先順で行う。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
//
// アカウント解決の手順:
//  1. Google IDで既存ユーザーを検索する。
//  2. 見つからなければメールアドレスで検索する。事前招待で作成された
//     ゴーストアカウント（Google ID未紐付け）に該当すれば、そのアカウントに
//     Google IDとプロフィールを紐付ける。招待時の役割はそのまま保持される。
//  3. どちらにも該当しなければ新規作成する。オーナー対象メールなら
//     役割owner、それ以外はresidentとなる。
//
// BAN済みアカウントはどの経路でもログインを拒否する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, *model.User, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.resolveAccount(ctx, userInfo)
	if err != nil {
		return nil, nil, err
	}

	if user.IsBanned {
		slog.Warn("banned user attempted login",
			slog.String("user_id", user.ID),
		)
		return nil, nil, model.NewAccountBannedError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, user, nil
}

// resolveAccount はOAuthユーザー情報を既存または新規のアカウントに解決する。
func (s *Service) resolveAccount(ctx context.Context, userInfo *OAuthUserInfo) (*model.User, error) {
	// 1. Google IDで既存ユーザーを検索
	user, err := s.userRepo.FindByGoogleID(ctx, userInfo.GoogleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}
	if user != nil {
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("role", string(user.Role)),
		)
		return user, nil
	}

	// 2. メールアドレスで検索（事前招待ゴーストアカウントの紐付け）
	user, err = s.userRepo.FindByEmail(ctx, userInfo.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user != nil {
		if user.IsGhost() {
			if err := s.userRepo.BindGoogleID(ctx, user.ID, userInfo.GoogleID, userInfo.Name, userInfo.PhotoURL); err != nil {
				return nil, fmt.Errorf("failed to bind google ID: %w", err)
			}
			user.GoogleID = userInfo.GoogleID
			user.Name = userInfo.Name
			user.PhotoURL = userInfo.PhotoURL
			slog.Info("ghost account bound to google identity",
				slog.String("user_id", user.ID),
				slog.String("role", string(user.Role)),
			)
			return user, nil
		}
		// 同一メールに別のGoogle IDが紐付け済み。再作成されたGoogleアカウント等の
		// 稀なケースだが、メールの一致を優先してログインを許可する。
		slog.Warn("email matched user with different google ID",
			slog.String("user_id", user.ID),
		)
		return user, nil
	}

	// 3. 新規作成
	role := model.RoleResident
	if ownerEmails[userInfo.Email] {
		role = model.RoleOwner
	}

	newUser := &model.User{
		ID:        uuid.New().String(),
		GoogleID:  userInfo.GoogleID,
		Name:      userInfo.Name,
		Email:     userInfo.Email,
		PhotoURL:  userInfo.PhotoURL,
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("role", string(role)),
	)
	return newUser, nil
}

// DevLogin は開発環境向けのログインバイパス。OAuthを経由せずに
// 指定メールのアカウントでセッションを発行する。アカウントが
// 存在しなければresidentとして作成する。
// 設定でDEV_LOGINが有効な場合のみハンドラーから到達可能。
func (s *Service) DevLogin(ctx context.Context, email, name string) (*model.Session, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		role := model.RoleResident
		if ownerEmails[email] {
			role = model.RoleOwner
		}
		user = &model.User{
			ID:        uuid.New().String(),
			Name:      name,
			Email:     email,
			Role:      role,
			CreatedAt: time.Now(),
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, nil, fmt.Errorf("failed to create dev user: %w", err)
		}
		slog.Info("dev login created user", slog.String("user_id", user.ID))
	}

	if user.IsBanned {
		return nil, nil, model.NewAccountBannedError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.config.SessionMaxAge),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
