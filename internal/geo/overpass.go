package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/lucasmorforio/ubalerta/internal/model"
)

// defaultOverpassEndpoint はOverpass APIのエンドポイント。
const defaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"

// OverpassClient はOverpass APIのクライアント。
// 自治体の行政境界内に限定して街路の形状と一覧を取得する。
type OverpassClient struct {
	httpClient   *http.Client
	logger       *slog.Logger
	municipality string // 行政境界の検索に使う自治体名（例: "Ubá"）
	endpoint     string // テスト用にエンドポイントを差し替え可能
}

// NewOverpassClient はOverpassClientの新しいインスタンスを生成する。
func NewOverpassClient(httpClient *http.Client, logger *slog.Logger, municipality string) *OverpassClient {
	return &OverpassClient{
		httpClient:   httpClient,
		logger:       logger,
		municipality: municipality,
		endpoint:     defaultOverpassEndpoint,
	}
}

// overpassPoint はOverpassのジオメトリ座標1点分。
type overpassPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// overpassElement はOverpassレスポンスの要素1件分。
// out geom;ではGeometry、out center;ではCenterが埋まる。
type overpassElement struct {
	Type     string            `json:"type"`
	Geometry []overpassPoint   `json:"geometry"`
	Center   *overpassPoint    `json:"center"`
	Tags     map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// escapeQL はOverpass QLの文字列リテラル内で使う値をエスケープする。
func escapeQL(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}

// query はOverpass QLをPOSTしてレスポンスをパースする。
func (c *OverpassClient) query(ctx context.Context, ql string) (*overpassResponse, error) {
	form := url.Values{}
	form.Set("data", ql)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Overpass APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Overpass APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("Overpass APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var parsed overpassResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return &parsed, nil
}

// StreetGeometry は指定街路の形状を構成する折れ線の集合を返す。
// 同名の道路は複数のwayに分割されていることが多いため、1本ごとに1要素となる。
// 行政境界内に該当がない場合は空スライスを返す。
func (c *OverpassClient) StreetGeometry(ctx context.Context, streetName string) ([][]model.Coordinate, error) {
	ql := fmt.Sprintf(`[out:json][timeout:25];
area[name="%s"][admin_level=8]->.a;
way(area.a)[highway][name="%s"];
out geom;`, escapeQL(c.municipality), escapeQL(streetName))

	parsed, err := c.query(ctx, ql)
	if err != nil {
		return nil, err
	}

	var lines [][]model.Coordinate
	for _, element := range parsed.Elements {
		if element.Type != "way" || len(element.Geometry) == 0 {
			continue
		}
		line := make([]model.Coordinate, 0, len(element.Geometry))
		for _, point := range element.Geometry {
			line = append(line, model.Coordinate{Lat: point.Lat, Lng: point.Lon})
		}
		lines = append(lines, line)
	}

	c.logger.Info("街路形状を取得しました",
		slog.String("street_name", streetName),
		slog.Int("way_count", len(lines)),
	)
	return lines, nil
}

// StreetSummary はOSMから取得した街路の名称と代表点。
type StreetSummary struct {
	Name string
	Lat  float64
	Lng  float64
}

// MunicipalityStreets は行政境界内の名称付き道路を一覧取得する。
// 同名のwayは最初の1件の代表点だけを採用して重複を除く。
// 街路マスタの一括インポートで使用する。
func (c *OverpassClient) MunicipalityStreets(ctx context.Context) ([]StreetSummary, error) {
	ql := fmt.Sprintf(`[out:json][timeout:60];
area[name="%s"][admin_level=8]->.a;
way(area.a)[highway][name];
out center tags;`, escapeQL(c.municipality))

	parsed, err := c.query(ctx, ql)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var streets []StreetSummary
	for _, element := range parsed.Elements {
		if element.Type != "way" || element.Center == nil {
			continue
		}
		name := strings.TrimSpace(element.Tags["name"])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		streets = append(streets, StreetSummary{
			Name: name,
			Lat:  element.Center.Lat,
			Lng:  element.Center.Lon,
		})
	}

	c.logger.Info("自治体内の街路一覧を取得しました",
		slog.Int("street_count", len(streets)),
	)
	return streets, nil
}
