// Package model はドメインモデルを定義する。
package model

import "time"

// FlagThreshold は通報が地図フィードから除外され、投稿者がBANされる旗数の閾値。
const FlagThreshold = 10

// MaxMarkersPerSubmission は1回の投稿で受け付ける地点マーカーの最大数。
// 各マーカーは同一道路上の物理的に異なる問題箇所を表し、独立したReport行になる。
const MaxMarkersPerSubmission = 3

// ReportStatus は通報の種別を表す。
type ReportStatus string

const (
	// StatusTotal は道路の完全封鎖。
	StatusTotal ReportStatus = "total"
	// StatusParcial は部分的な通行障害。
	StatusParcial ReportStatus = "parcial"
	// StatusBridge は橋の崩落・危険。
	StatusBridge ReportStatus = "bridge"
	// StatusDoacao は寄付・物資の受付地点。
	StatusDoacao ReportStatus = "doacao"
	// StatusNeedHelp は救助・支援の要請。
	StatusNeedHelp ReportStatus = "need_help"
)

// validStatuses は受け付ける通報種別の集合。
var validStatuses = map[ReportStatus]bool{
	StatusTotal:    true,
	StatusParcial:  true,
	StatusBridge:   true,
	StatusDoacao:   true,
	StatusNeedHelp: true,
}

// IsValid は既知の通報種別かを返す。
func (s ReportStatus) IsValid() bool {
	return validStatuses[s]
}

// Report は道路に紐付く状況通報を表す。
// UserIDが空のレコードはシステム（定期検証ジョブ）が作成した公式通報。
// LatとLngがnilの場合、表示時には道路の代表座標にフォールバックする。
type Report struct {
	ID          string
	StreetID    string
	UserID      string // 空文字列はシステム起票（投稿者なし）を意味する
	Status      ReportStatus
	Description string
	IsOfficial  bool
	FlagCount   int
	Lat         *float64
	Lng         *float64
	CreatedAt   time.Time
}

// Visible は通報が地図フィードに含まれるかを返す。
// 旗数が閾値に達した非公式通報はフィードから除外される（行自体は残る）。
// 公式通報は旗立て不可のため常に表示される。
func (r *Report) Visible() bool {
	return r.IsOfficial || r.FlagCount < FlagThreshold
}

// Flaggable は通報がエンドユーザーによる旗立ての対象かを返す。
// 公式通報は旗立て免除。
func (r *Report) Flaggable() bool {
	return !r.IsOfficial
}

// Flag は1ユーザーによる1通報への旗立て（虚偽通報の申告）を表す。
// (report, user) の組につき最大1件。挿入前の存在チェックで担保する。
type Flag struct {
	ID        string
	ReportID  string
	UserID    string
	CreatedAt time.Time
}
