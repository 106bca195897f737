// Package mapfeed は地図表示用のアラートフィードを提供する。
package mapfeed

import (
	"context"
	"fmt"

	"github.com/lucasmorforio/ubalerta/internal/model"
	"github.com/lucasmorforio/ubalerta/internal/repository"
)

// systemSource はシステム起票の公式アラートに表示する出典。
const systemSource = "Extraído automaticamente dos canais oficiais."

// FeedItem は地図フィードの1件分。
type FeedItem struct {
	ReportID    string
	StreetID    string
	Title       string
	Lat         float64
	Lng         float64
	Status      model.ReportStatus
	Description string
	IsOfficial  bool
	// Source は投稿者の表示名。システム起票の場合は固定の出典文になる。
	Source string
	// AuthorRole は投稿者の役割。システム起票の場合は空文字列。
	AuthorRole model.Role
}

// Service は地図フィードの取得ロジックを提供する。
type Service struct {
	reportRepo repository.ReportRepository
}

// NewService はServiceを生成する。
func NewService(reportRepo repository.ReportRepository) *Service {
	return &Service{reportRepo: reportRepo}
}

// ListFeed は地図に表示する全アラートを返す。認証不要の公開フィード。
// 旗数が閾値に達した非公式アラートは除外される。
func (s *Service) ListFeed(ctx context.Context) ([]FeedItem, error) {
	rows, err := s.reportRepo.ListVisible(ctx, model.FlagThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible reports: %w", err)
	}

	items := make([]FeedItem, 0, len(rows))
	for _, row := range rows {
		source := row.Source
		if source == "" {
			source = systemSource
		}
		items = append(items, FeedItem{
			ReportID:    row.ReportID,
			StreetID:    row.StreetID,
			Title:       row.Title,
			Lat:         row.Lat,
			Lng:         row.Lng,
			Status:      row.Status,
			Description: row.Description,
			IsOfficial:  row.IsOfficial,
			Source:      source,
			AuthorRole:  row.AuthorRole,
		})
	}
	return items, nil
}
