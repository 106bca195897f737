// Package moderation はアラートの投稿・旗立て・自動BAN・道路管理・役割昇格の
// ビジネスロジックを提供する。
package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucasmorforio/ubalerta/internal/metrics"
	"github.com/lucasmorforio/ubalerta/internal/model"
	"github.com/lucasmorforio/ubalerta/internal/repository"
	"github.com/lucasmorforio/ubalerta/internal/security"
)

// Geocoder は道路名を座標に解決するインターフェース。
// 該当なしの場合は(nil, nil)を返す。
type Geocoder interface {
	Geocode(ctx context.Context, name string) (*model.Coordinate, error)
}

// ServiceConfig はモデレーションサービスの設定。
type ServiceConfig struct {
	// GeocodeTimeout は道路追加時のジオコーディングの打ち切り時間。
	GeocodeTimeout time.Duration
	// FallbackCenter はジオコーディング不能時に採用する自治体の中心座標。
	FallbackCenter model.Coordinate
}

// Service はモデレーションに関するビジネスロジックを提供する。
type Service struct {
	streetRepo  repository.StreetRepository
	reportRepo  repository.ReportRepository
	flagRepo    repository.FlagRepository
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	sanitizer   security.TextSanitizerService
	geocoder    Geocoder
	metrics     metrics.MetricsCollector
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	streetRepo repository.StreetRepository,
	reportRepo repository.ReportRepository,
	flagRepo repository.FlagRepository,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	sanitizer security.TextSanitizerService,
	geocoder Geocoder,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		streetRepo:  streetRepo,
		reportRepo:  reportRepo,
		flagRepo:    flagRepo,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sanitizer:   sanitizer,
		geocoder:    geocoder,
		metrics:     collector,
		config:      config,
	}
}

// SubmitReportInput はアラート投稿の入力。
type SubmitReportInput struct {
	StreetID    string
	Status      model.ReportStatus
	Description string
	// Markers は同一道路上の問題箇所の座標。最大3件で、超過分は
	// 先頭から3件に切り詰められる。空の場合は道路の代表座標で
	// 表示される通報が1件作られる。
	Markers []model.Coordinate
}

// SubmitReport はアラートを投稿する。マーカーが複数指定された場合、
// 1マーカーにつき1件の通報行が同一トランザクションで作成される。
// admin以上の投稿は公式アラートとなり、旗立ての対象外になる。
func (s *Service) SubmitReport(ctx context.Context, user *model.User, input SubmitReportInput) ([]*model.Report, error) {
	if user.IsBanned {
		return nil, model.NewAccountBannedError()
	}
	if !input.Status.IsValid() {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("status desconhecido: %s", input.Status))
	}
	// 上限を超えるマーカーは先頭から上限数まで受け付け、残りは捨てる
	if len(input.Markers) > model.MaxMarkersPerSubmission {
		input.Markers = input.Markers[:model.MaxMarkersPerSubmission]
	}

	street, err := s.streetRepo.FindByID(ctx, input.StreetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find street: %w", err)
	}
	if street == nil {
		return nil, model.NewStreetNotFoundError(input.StreetID)
	}

	description := s.sanitizer.Sanitize(input.Description)
	isOfficial := user.Role.AtLeast(model.RoleAdmin)
	now := time.Now()

	var reports []*model.Report
	if len(input.Markers) == 0 {
		// マーカーなし: 道路の代表座標で表示される通報を1件作成
		reports = append(reports, &model.Report{
			ID:          uuid.New().String(),
			StreetID:    street.ID,
			UserID:      user.ID,
			Status:      input.Status,
			Description: description,
			IsOfficial:  isOfficial,
			CreatedAt:   now,
		})
	} else {
		for _, marker := range input.Markers {
			lat, lng := marker.Lat, marker.Lng
			reports = append(reports, &model.Report{
				ID:          uuid.New().String(),
				StreetID:    street.ID,
				UserID:      user.ID,
				Status:      input.Status,
				Description: description,
				IsOfficial:  isOfficial,
				Lat:         &lat,
				Lng:         &lng,
				CreatedAt:   now,
			})
		}
	}

	if err := s.reportRepo.CreateBatch(ctx, reports); err != nil {
		return nil, fmt.Errorf("failed to create reports: %w", err)
	}

	for range reports {
		s.metrics.RecordReportSubmitted(string(input.Status), isOfficial)
	}

	slog.Info("report submitted",
		slog.String("user_id", user.ID),
		slog.String("street_id", street.ID),
		slog.String("status", string(input.Status)),
		slog.Int("marker_count", len(reports)),
		slog.Bool("official", isOfficial),
	)
	return reports, nil
}

// FlagReport は通報に旗を立てる。更新後の旗数を返す。
//
// プロトコル:
//   - 公式アラートは旗立て不可（OFFICIAL_REPORT）。
//   - 同一ユーザーによる二重旗立ては拒否（DUPLICATE_FLAG）。
//   - 旗数が閾値に達した時点で投稿者を自動BANし、全セッションを破棄する。
//     閾値超過後の再発動も同じ結果になる（冪等）。
func (s *Service) FlagReport(ctx context.Context, user *model.User, reportID string) (int, error) {
	if user.IsBanned {
		return 0, model.NewAccountBannedError()
	}

	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		return 0, fmt.Errorf("failed to find report: %w", err)
	}
	if report == nil {
		return 0, model.NewReportNotFoundError(reportID)
	}
	if !report.Flaggable() {
		return 0, model.NewOfficialReportError()
	}

	existing, err := s.flagRepo.FindByReportAndUser(ctx, reportID, user.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to check duplicate flag: %w", err)
	}
	if existing != nil {
		return 0, model.NewDuplicateFlagError()
	}

	flag := &model.Flag{
		ID:        uuid.New().String(),
		ReportID:  reportID,
		UserID:    user.ID,
		CreatedAt: time.Now(),
	}
	flagCount, authorID, err := s.flagRepo.CreateWithCount(ctx, flag)
	if err != nil {
		return 0, fmt.Errorf("failed to create flag: %w", err)
	}
	s.metrics.RecordFlagCreated()

	slog.Info("report flagged",
		slog.String("report_id", reportID),
		slog.String("flagged_by", user.ID),
		slog.Int("flag_count", flagCount),
	)

	if flagCount >= model.FlagThreshold && authorID != "" {
		if err := s.banAuthor(ctx, authorID); err != nil {
			// 旗自体は記録済みのため、BAN失敗はログに留めて次回の旗立てで再試行させる
			slog.Error("failed to ban report author",
				slog.String("author_id", authorID),
				slog.String("error", err.Error()),
			)
		}
	}

	return flagCount, nil
}

// banAuthor は投稿者をBANし、全セッションを破棄して強制ログアウトさせる。
func (s *Service) banAuthor(ctx context.Context, authorID string) error {
	if err := s.userRepo.SetBanned(ctx, authorID, true); err != nil {
		return fmt.Errorf("failed to set banned: %w", err)
	}
	if err := s.sessionRepo.DeleteByUserID(ctx, authorID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	s.metrics.RecordUserBanned()
	slog.Warn("user auto-banned for flagged reports",
		slog.String("user_id", authorID),
	)
	return nil
}

// DeleteReport は通報を削除する。admin以上のみ実行可能。
func (s *Service) DeleteReport(ctx context.Context, user *model.User, reportID string) error {
	if !user.Role.AtLeast(model.RoleAdmin) {
		return model.NewForbiddenError()
	}

	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("failed to find report: %w", err)
	}
	if report == nil {
		return model.NewReportNotFoundError(reportID)
	}

	if err := s.reportRepo.Delete(ctx, reportID); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	slog.Info("report deleted",
		slog.String("report_id", reportID),
		slog.String("deleted_by", user.ID),
	)
	return nil
}

// CreateStreet は道路を追加する。admin以上のみ実行可能。
// 座標はジオコーディングで解決し、該当なし・失敗時は自治体の中心座標に
// フォールバックする（追加自体は失敗しない）。
func (s *Service) CreateStreet(ctx context.Context, user *model.User, name string) (*model.Street, error) {
	if !user.Role.AtLeast(model.RoleAdmin) {
		return nil, model.NewForbiddenError()
	}

	name = strings.TrimSpace(s.sanitizer.Sanitize(name))
	if name == "" {
		return nil, model.NewInvalidRequestError("nome da rua é obrigatório")
	}

	coord := s.resolveCoordinate(ctx, name)

	street := &model.Street{
		ID:   uuid.New().String(),
		Name: name,
		Lat:  coord.Lat,
		Lng:  coord.Lng,
	}
	if err := s.streetRepo.Create(ctx, street); err != nil {
		return nil, fmt.Errorf("failed to create street: %w", err)
	}

	slog.Info("street created",
		slog.String("street_id", street.ID),
		slog.String("name", name),
		slog.String("created_by", user.ID),
	)
	return street, nil
}

// resolveCoordinate は道路名をジオコーディングし、失敗時はフォールバック座標を返す。
func (s *Service) resolveCoordinate(ctx context.Context, name string) model.Coordinate {
	geocodeCtx, cancel := context.WithTimeout(ctx, s.config.GeocodeTimeout)
	defer cancel()

	start := time.Now()
	coord, err := s.geocoder.Geocode(geocodeCtx, name)
	s.metrics.RecordGeocodeLatency(time.Since(start))

	if err != nil {
		slog.Warn("geocoding failed, using fallback center",
			slog.String("street_name", name),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordGeocodeResult(false)
		return s.config.FallbackCenter
	}
	if coord == nil {
		s.metrics.RecordGeocodeResult(false)
		return s.config.FallbackCenter
	}
	s.metrics.RecordGeocodeResult(true)
	return *coord
}

// DeleteStreet は道路と配下の通報・旗を削除する。admin以上のみ実行可能。
func (s *Service) DeleteStreet(ctx context.Context, user *model.User, streetID string) error {
	if !user.Role.AtLeast(model.RoleAdmin) {
		return model.NewForbiddenError()
	}

	street, err := s.streetRepo.FindByID(ctx, streetID)
	if err != nil {
		return fmt.Errorf("failed to find street: %w", err)
	}
	if street == nil {
		return model.NewStreetNotFoundError(streetID)
	}

	if err := s.streetRepo.Delete(ctx, streetID); err != nil {
		return fmt.Errorf("failed to delete street: %w", err)
	}

	slog.Info("street deleted",
		slog.String("street_id", streetID),
		slog.String("name", street.Name),
		slog.String("deleted_by", user.ID),
	)
	return nil
}

// PromoteAdmin はメールアドレスを指定してアカウントを管理者に昇格する。
// ownerのみ実行可能。
//
//   - 未登録のメールにはゴーストアカウントを作成する。対象者の初回ログイン時に
//     Google IDが紐付けられ、admin役割のままになる。
//   - 既にadminのアカウントには何もしない（成功扱い）。
//   - ownerのアカウントは昇格対象にできない（ALREADY_OWNER）。
func (s *Service) PromoteAdmin(ctx context.Context, user *model.User, email string) (*model.User, error) {
	if !user.Role.AtLeast(model.RoleOwner) {
		return nil, model.NewForbiddenError()
	}
	if email == "" {
		return nil, model.NewInvalidRequestError("email é obrigatório")
	}

	target, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if target == nil {
		// ゴーストアカウントを先行作成
		ghost := &model.User{
			ID:        uuid.New().String(),
			Email:     email,
			Role:      model.RoleAdmin,
			CreatedAt: time.Now(),
		}
		if err := s.userRepo.Create(ctx, ghost); err != nil {
			return nil, fmt.Errorf("failed to create ghost account: %w", err)
		}
		slog.Info("ghost admin account created",
			slog.String("user_id", ghost.ID),
			slog.String("promoted_by", user.ID),
		)
		return ghost, nil
	}

	switch {
	case target.Role == model.RoleOwner:
		return nil, model.NewAlreadyOwnerError(email)
	case target.Role == model.RoleAdmin:
		// 既にadmin: 冪等に成功扱い
		return target, nil
	}

	if err := s.userRepo.UpdateRole(ctx, target.ID, model.RoleAdmin); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	target.Role = model.RoleAdmin

	slog.Info("user promoted to admin",
		slog.String("user_id", target.ID),
		slog.String("promoted_by", user.ID),
	)
	return target, nil
}
