// Package geo はOpenStreetMap系サービスとの連携機能を提供する。
// Nominatimによるジオコーディングと、Overpass APIによる街路形状の取得を含む。
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lucasmorforio/ubalerta/internal/model"
)

// defaultNominatimEndpoint はNominatim検索APIのエンドポイント。
const defaultNominatimEndpoint = "https://nominatim.openstreetmap.org/search"

// userAgent は外部OSMサービスへのリクエストで名乗るUA。
// Nominatimの利用規約により識別可能なUAが必須。
const userAgent = "UbAlerta/1.0 (status de vias municipais)"

// NominatimClient はNominatimジオコーディングAPIのクライアント。
// 街路名を自治体スコープ付きで座標に解決する。
type NominatimClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	region     string // 検索語に付加する地域名（例: "Ubá, Minas Gerais"）
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewNominatimClient はNominatimClientの新しいインスタンスを生成する。
// regionは全ての検索語に付加され、自治体外の同名街路への誤解決を防ぐ。
func NewNominatimClient(httpClient *http.Client, logger *slog.Logger, region string) *NominatimClient {
	return &NominatimClient{
		httpClient: httpClient,
		logger:     logger,
		region:     region,
		endpoint:   defaultNominatimEndpoint,
	}
}

// nominatimResult はNominatim検索APIのレスポンス1件分。
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode は街路名を座標に解決する。
// 検索語は「<name>, <region>」の形式で送信し、最初の結果のみを使用する。
// 該当なしの場合は(nil, nil)を返す。フォールバック座標の適用は呼び出し側が行う。
func (c *NominatimClient) Geocode(ctx context.Context, name string) (*model.Coordinate, error) {
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("q", fmt.Sprintf("%s, %s", name, c.region))
	q.Set("format", "json")
	q.Set("limit", "1")
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Nominatim APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("street_name", name),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Nominatim APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("street_name", name),
		)
		return nil, fmt.Errorf("Nominatim APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if len(results) == 0 {
		c.logger.Info("ジオコーディングの結果が見つかりませんでした",
			slog.String("street_name", name),
		)
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("緯度のパースに失敗しました: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("経度のパースに失敗しました: %w", err)
	}

	return &model.Coordinate{Lat: lat, Lng: lng}, nil
}
