package validator

import (
	"strings"

	"github.com/lucasmorforio/ubalerta/internal/model"
)

// BulletinMatch は公報テキストの解析結果。
type BulletinMatch struct {
	// StreetName は公報が言及している道路の正規化された名称。
	// 道路マスタとの照合は部分一致で行う。
	StreetName string
	Status     model.ReportStatus
}

// streetPattern は公報中の言い回しと道路の正規名称の対応。
type streetPattern struct {
	fragment string // 公報テキスト中の検出語（小文字）
	name     string // 道路マスタ上の正規名称
}

// streetPatterns は公報で使われる道路の呼称。定義順に最初の一致を採用する。
var streetPatterns = []streetPattern{
	{fragment: "beira-rio", name: "Avenida Beira-Rio"},
	{fragment: "mg-447", name: "MG-447"},
	{fragment: "major fusaro", name: "Ponte Major Fusaro"},
}

// statusKeyword は公報中の状況表現と通報種別の対応。
type statusKeyword struct {
	fragment string
	status   model.ReportStatus
}

// statusKeywords は状況表現の検出語。定義順に全件評価し、後に一致した
// ものが優先される。崩落と封鎖の両方に言及する公報は全面封鎖と判定する。
var statusKeywords = []statusKeyword{
	{fragment: "desabamento", status: model.StatusBridge},
	{fragment: "ponte caiu", status: model.StatusBridge},
	{fragment: "interdição total", status: model.StatusTotal},
	{fragment: "bloqueada", status: model.StatusTotal},
}

// Analyzer は公報テキストのキーワード解析器。
type Analyzer struct{}

// NewAnalyzer はAnalyzerを生成する。
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze は公報テキストから道路と状況を抽出する。
// 市名（Ubá）への言及がない公報は市外の情報とみなして無視する。
// 道路の言及が見つからない場合も(nil, false)を返す。
// 状況表現が見つからない場合は部分障害（parcial）として扱う。
func (a *Analyzer) Analyze(bulletin string) (*BulletinMatch, bool) {
	lower := strings.ToLower(bulletin)

	if !strings.Contains(lower, "ubá") {
		return nil, false
	}

	var streetName string
	for _, pattern := range streetPatterns {
		if strings.Contains(lower, pattern.fragment) {
			streetName = pattern.name
			break
		}
	}
	if streetName == "" {
		return nil, false
	}

	status := model.StatusParcial
	for _, keyword := range statusKeywords {
		if strings.Contains(lower, keyword.fragment) {
			status = keyword.status
		}
	}

	return &BulletinMatch{
		StreetName: streetName,
		Status:     status,
	}, true
}
