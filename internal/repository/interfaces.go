// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/lucasmorforio/ubalerta/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByGoogleID はGoogleの外部IDでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// ゴーストアカウントの紐付けと管理者昇格で使用する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// BindGoogleID はゴーストアカウントに外部IDとプロフィールを紐付ける。
	// 既にGoogleIDが設定されている行は変更しない。
	BindGoogleID(ctx context.Context, userID, googleID, name, photoURL string) error

	// SetBanned はユーザーのBANフラグを設定する。冪等。
	SetBanned(ctx context.Context, id string, banned bool) error

	// UpdateRole はユーザーの役割を更新する。
	UpdateRole(ctx context.Context, id string, role model.Role) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// StreetRepository は道路データの永続化インターフェース。
type StreetRepository interface {
	// FindByID は指定IDの道路を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Street, error)

	// FindByNameLike は名前の部分一致で道路を1件検索する。見つからない場合はnilを返す。
	// 定期検証ジョブの道路名照合で使用する。
	FindByNameLike(ctx context.Context, fragment string) (*model.Street, error)

	// Search は全単語がAND条件で部分一致する道路を最大limit件返す。
	Search(ctx context.Context, words []string, limit int) ([]*model.Street, error)

	// Create は道路を作成する。
	Create(ctx context.Context, street *model.Street) error

	// Delete は道路と、それに紐付く通報・旗を同一トランザクションで削除する。
	Delete(ctx context.Context, id string) error

	// UpsertBatch は道路群を一括投入する。既存の同名道路は変更しない（シード用）。
	UpsertBatch(ctx context.Context, streets []*model.Street) error

	// ReplaceAll は既存の道路・通報・旗を全削除し、道路群を投入し直す（一括インポート用）。
	ReplaceAll(ctx context.Context, streets []*model.Street) error
}

// ReportRepository は通報データの永続化インターフェース。
type ReportRepository interface {
	// FindByID は指定IDの通報を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Report, error)

	// FindFirstByStreetID は指定道路の通報を1件取得する。見つからない場合はnilを返す。
	// 定期検証ジョブの既存通報照合で使用する。
	FindFirstByStreetID(ctx context.Context, streetID string) (*model.Report, error)

	// CreateBatch は複数の通報行を同一トランザクションで作成する。
	// 1回の投稿の複数マーカーが部分的に書き込まれることを防ぐ。
	CreateBatch(ctx context.Context, reports []*model.Report) error

	// MarkOfficial は通報を公式に昇格させ、種別を上書きする。
	// 投稿者の説明文はそのまま保持される。
	MarkOfficial(ctx context.Context, id string, status model.ReportStatus) error

	// Delete は指定IDの通報を削除する。紐付く旗はCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// ListVisible は旗数がthreshold未満か公式の通報を、道路・投稿者情報とJOINして返す。
	// 表示座標は通報自身の地点があればそれを、なければ道路の代表座標を採用する。
	ListVisible(ctx context.Context, threshold int) ([]MapFeedRow, error)
}

// FlagRepository は旗（虚偽通報の申告）データの永続化インターフェース。
type FlagRepository interface {
	// FindByReportAndUser は(通報, ユーザー)の組で旗を検索する。見つからない場合はnilを返す。
	// 二重旗立ての挿入前チェックで使用する。
	FindByReportAndUser(ctx context.Context, reportID, userID string) (*model.Flag, error)

	// CreateWithCount は旗の挿入と通報の旗数インクリメントを同一トランザクションで行い、
	// 更新後の旗数と通報の投稿者IDを返す。投稿者なし（システム起票）の場合authorIDは空文字列。
	CreateWithCount(ctx context.Context, flag *model.Flag) (flagCount int, authorID string, err error)
}

// MapFeedRow は地図フィード用に通報・道路・投稿者を結合した行。
type MapFeedRow struct {
	ReportID    string
	StreetID    string
	Title       string // 道路名
	Lat         float64
	Lng         float64
	Status      model.ReportStatus
	Description string
	IsOfficial  bool
	Source      string     // 投稿者の表示名。システム起票の場合は空文字列
	AuthorRole  model.Role // 投稿者の役割。システム起票の場合は空文字列
}
