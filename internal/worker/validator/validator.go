package validator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lucasmorforio/ubalerta/internal/metrics"
	"github.com/lucasmorforio/ubalerta/internal/model"
	"github.com/lucasmorforio/ubalerta/internal/repository"
)

// systemDescription はシステム起票の公式アラートに載せる固定の説明文。
const systemDescription = "Extraído via IA dos canais oficiais."

// Validator は公報の取得・解析・公式アラートの起票を行う定期ジョブ。
//
// 照合のルール:
//   - 公報が言及する道路に既存のアラートがあれば、それを公式に昇格し
//     種別のみ公報の内容で上書きする。住民が書いた説明文は保持する。
//   - なければシステム起票（投稿者なし）の公式アラートを新規作成する。
//     説明文は固定のシステム文言になる。
//   - 道路マスタに該当道路がなければ何もしない（次回実行で再評価される）。
//
// 同じ公報を繰り返し処理しても結果は変わらない（冪等）。
type Validator struct {
	streetRepo repository.StreetRepository
	reportRepo repository.ReportRepository
	source     BulletinSource
	analyzer   *Analyzer
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewValidator はValidatorを生成する。
func NewValidator(
	streetRepo repository.StreetRepository,
	reportRepo repository.ReportRepository,
	source BulletinSource,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Validator {
	return &Validator{
		streetRepo: streetRepo,
		reportRepo: reportRepo,
		source:     source,
		analyzer:   NewAnalyzer(),
		metrics:    collector,
		logger:     logger,
	}
}

// Start は指定間隔のティッカーで検証ジョブを起動する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (v *Validator) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	v.logger.Info("公報検証ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	if err := v.RunOnce(ctx); err != nil {
		v.logger.Error("公報検証サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			v.logger.Info("公報検証ジョブを停止しました")
			return
		case <-ticker.C:
			if err := v.RunOnce(ctx); err != nil {
				v.logger.Error("公報検証サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は公報を1回取得し、全件を解析・照合する。
func (v *Validator) RunOnce(ctx context.Context) error {
	start := time.Now()

	bulletins, err := v.source.FetchBulletins(ctx)
	if err != nil {
		return fmt.Errorf("公報の取得に失敗: %w", err)
	}

	var matched, applied int
	for _, bulletin := range bulletins {
		match, ok := v.analyzer.Analyze(bulletin)
		v.metrics.RecordBulletinScan(ok)
		if !ok {
			continue
		}
		matched++

		if err := v.apply(ctx, match); err != nil {
			v.logger.Error("公式アラートの反映に失敗しました",
				slog.String("street_name", match.StreetName),
				slog.String("error", err.Error()),
			)
			continue
		}
		applied++
	}

	v.logger.Info("公報検証サイクルが完了しました",
		slog.Int("bulletin_count", len(bulletins)),
		slog.Int("matched", matched),
		slog.Int("applied", applied),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// apply は解析結果を道路マスタと照合し、公式アラートを起票・更新する。
func (v *Validator) apply(ctx context.Context, match *BulletinMatch) error {
	street, err := v.streetRepo.FindByNameLike(ctx, match.StreetName)
	if err != nil {
		return fmt.Errorf("道路の照合に失敗: %w", err)
	}
	if street == nil {
		v.logger.Warn("公報が言及する道路が登録されていません",
			slog.String("street_name", match.StreetName),
		)
		return nil
	}

	existing, err := v.reportRepo.FindFirstByStreetID(ctx, street.ID)
	if err != nil {
		return fmt.Errorf("既存アラートの照合に失敗: %w", err)
	}

	if existing != nil {
		if err := v.reportRepo.MarkOfficial(ctx, existing.ID, match.Status); err != nil {
			return fmt.Errorf("公式昇格に失敗: %w", err)
		}
		v.logger.Info("既存アラートを公式に昇格しました",
			slog.String("report_id", existing.ID),
			slog.String("street_name", street.Name),
			slog.String("status", string(match.Status)),
		)
		return nil
	}

	report := &model.Report{
		ID:          uuid.New().String(),
		StreetID:    street.ID,
		UserID:      "", // システム起票
		Status:      match.Status,
		Description: systemDescription,
		IsOfficial:  true,
		CreatedAt:   time.Now(),
	}
	if err := v.reportRepo.CreateBatch(ctx, []*model.Report{report}); err != nil {
		return fmt.Errorf("公式アラートの作成に失敗: %w", err)
	}

	v.logger.Info("公式アラートを起票しました",
		slog.String("report_id", report.ID),
		slog.String("street_name", street.Name),
		slog.String("status", string(match.Status)),
	)
	return nil
}
