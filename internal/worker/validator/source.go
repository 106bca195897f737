// Package validator は公式公報の定期検証ジョブを提供する。
// 防災公報のテキストを解析し、該当道路の公式アラートを起票・更新する。
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
)

// BulletinSource は公報テキストの取得元インターフェース。
type BulletinSource interface {
	// FetchBulletins は検証対象の公報テキストを取得する。
	FetchBulletins(ctx context.Context) ([]string, error)
}

// mockBulletinText は公式チャネル連携が未設定の環境で使う固定の模擬公報。
// 実際の防災公報の文面を模している。
const mockBulletinText = "Boletim Defesa Civil Ubá: Acesso a MG-447 bloqueada por completo devido à grande quantidade de lama."

// MockBulletinSource は固定の模擬公報を返すソース。
// フィードURL未設定時のデフォルトで、パイプライン全体の動作確認に使う。
type MockBulletinSource struct{}

// FetchBulletins は模擬公報を1件返す。
func (MockBulletinSource) FetchBulletins(ctx context.Context) ([]string, error) {
	return []string{mockBulletinText}, nil
}

// RSSBulletinSource は防災機関のRSS/Atomフィードから公報を取得するソース。
type RSSBulletinSource struct {
	httpClient *http.Client
	logger     *slog.Logger
	feedURL    string
}

// NewRSSBulletinSource はRSSBulletinSourceを生成する。
// httpClientにはSSRF防止付きクライアントを渡すこと。
func NewRSSBulletinSource(httpClient *http.Client, logger *slog.Logger, feedURL string) *RSSBulletinSource {
	return &RSSBulletinSource{
		httpClient: httpClient,
		logger:     logger,
		feedURL:    feedURL,
	}
}

// FetchBulletins はフィードを取得し、各記事のタイトルと本文を結合した
// テキストを1記事1件で返す。
func (s *RSSBulletinSource) FetchBulletins(ctx context.Context) ([]string, error) {
	parser := gofeed.NewParser()
	parser.Client = s.httpClient

	feed, err := parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("公報フィードの取得に失敗しました: %w", err)
	}

	bulletins := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		text := strings.TrimSpace(item.Title + " " + item.Description)
		if text == "" {
			continue
		}
		bulletins = append(bulletins, text)
	}

	s.logger.Info("公報フィードを取得しました",
		slog.String("feed_url", s.feedURL),
		slog.Int("bulletin_count", len(bulletins)),
	)
	return bulletins, nil
}

// compile-time interface checks
var _ BulletinSource = MockBulletinSource{}
var _ BulletinSource = (*RSSBulletinSource)(nil)
