package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lucasmorforio/ubalerta/internal/model"
)

// PostgresFlagRepo はPostgreSQLを使用した通報リポジトリ。
type PostgresFlagRepo struct {
	db *sql.DB
}

// NewPostgresFlagRepo はPostgresFlagRepoを生成する。
func NewPostgresFlagRepo(db *sql.DB) *PostgresFlagRepo {
	return &PostgresFlagRepo{db: db}
}

// FindByReportAndUser は同一ユーザーによる既存の通報を検索する。見つからない場合はnilを返す。
func (r *PostgresFlagRepo) FindByReportAndUser(ctx context.Context, reportID, userID string) (*model.Flag, error) {
	flag := &model.Flag{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, report_id, user_id, created_at FROM flags
		 WHERE report_id = $1 AND user_id = $2`, reportID, userID).
		Scan(&flag.ID, &flag.ReportID, &flag.UserID, &flag.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find flag: %w", err)
	}
	return flag, nil
}

// CreateWithCount は通報の挿入とアラートのカウンタ加算を1トランザクションで行い、
// 更新後の通報数とアラート投稿者のIDを返す。閾値判定は呼び出し側が行う。
func (r *PostgresFlagRepo) CreateWithCount(ctx context.Context, flag *model.Flag) (int, string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO flags (id, report_id, user_id, created_at) VALUES ($1, $2, $3, $4)`,
		flag.ID, flag.ReportID, flag.UserID, flag.CreatedAt,
	)
	if err != nil {
		return 0, "", fmt.Errorf("failed to insert flag: %w", err)
	}

	var flagCount int
	var authorID sql.NullString
	err = tx.QueryRowContext(ctx,
		`UPDATE reports SET flag_count = flag_count + 1
		 WHERE id = $1 RETURNING flag_count, user_id`, flag.ReportID).
		Scan(&flagCount, &authorID)
	if err != nil {
		return 0, "", fmt.Errorf("failed to increment flag count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return flagCount, authorID.String, nil
}

// compile-time interface check
var _ FlagRepository = (*PostgresFlagRepo)(nil)
