package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lucasmorforio/ubalerta/internal/model"
)

// PostgresReportRepo はPostgreSQLを使用したアラートリポジトリ。
type PostgresReportRepo struct {
	db *sql.DB
}

// NewPostgresReportRepo はPostgresReportRepoを生成する。
func NewPostgresReportRepo(db *sql.DB) *PostgresReportRepo {
	return &PostgresReportRepo{db: db}
}

const reportColumns = `id, street_id, user_id, status, description, is_official, flag_count, lat, lng, created_at`

// scanReport は1行をmodel.Reportに読み取る。user_idのNULLは空文字列として扱う。
func scanReport(row *sql.Row) (*model.Report, error) {
	report := &model.Report{}
	var userID sql.NullString
	err := row.Scan(
		&report.ID, &report.StreetID, &userID, &report.Status,
		&report.Description, &report.IsOfficial, &report.FlagCount,
		&report.Lat, &report.Lng, &report.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	report.UserID = userID.String
	return report, nil
}

// FindByID は指定IDのアラートを取得する。見つからない場合はnilを返す。
func (r *PostgresReportRepo) FindByID(ctx context.Context, id string) (*model.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	report, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find report by ID: %w", err)
	}
	return report, nil
}

// FindFirstByStreetID は指定街路の最古のアラートを取得する。公報照合で使用する。
func (r *PostgresReportRepo) FindFirstByStreetID(ctx context.Context, streetID string) (*model.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE street_id = $1 ORDER BY created_at LIMIT 1`,
		streetID)
	report, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find report by street: %w", err)
	}
	return report, nil
}

// CreateBatch は複数のアラートを1トランザクションで作成する。
func (r *PostgresReportRepo) CreateBatch(ctx context.Context, reports []*model.Report) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reports (id, street_id, user_id, status, description, is_official, flag_count, lat, lng, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, report := range reports {
		var userID sql.NullString
		if report.UserID != "" {
			userID = sql.NullString{String: report.UserID, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			report.ID, report.StreetID, userID, report.Status,
			report.Description, report.IsOfficial, report.FlagCount,
			report.Lat, report.Lng, report.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert report: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MarkOfficial は既存アラートを公式情報に昇格し、状態を上書きする。
// 住民が書いた説明文は昇格後も保持される。
func (r *PostgresReportRepo) MarkOfficial(ctx context.Context, id string, status model.ReportStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reports SET is_official = TRUE, status = $2 WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to mark report official: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("report not found: %s", id)
	}
	return nil
}

// Delete は指定アラートを削除する。通報はON DELETE CASCADEで連動削除される。
func (r *PostgresReportRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("report not found: %s", id)
	}
	return nil
}

// ListVisible は地図表示対象のアラートを街路・投稿者情報と結合して返す。
// 通報数が閾値未満か、公式情報のものだけを対象とする。
// 座標はアラート固有のものがなければ街路の代表点にフォールバックする。
func (r *PostgresReportRepo) ListVisible(ctx context.Context, threshold int) ([]MapFeedRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.street_id, s.name,
		        COALESCE(r.lat, s.lat), COALESCE(r.lng, s.lng),
		        r.status, r.description, r.is_official,
		        COALESCE(u.name, ''), COALESCE(u.role, '')
		 FROM reports r
		 JOIN streets s ON s.id = r.street_id
		 LEFT JOIN users u ON u.id = r.user_id
		 WHERE r.flag_count < $1 OR r.is_official
		 ORDER BY r.created_at`, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible reports: %w", err)
	}
	defer rows.Close()

	var feed []MapFeedRow
	for rows.Next() {
		var row MapFeedRow
		err := rows.Scan(
			&row.ReportID, &row.StreetID, &row.Title,
			&row.Lat, &row.Lng,
			&row.Status, &row.Description, &row.IsOfficial,
			&row.Source, &row.AuthorRole,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan map feed row: %w", err)
		}
		feed = append(feed, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate map feed rows: %w", err)
	}
	return feed, nil
}

// compile-time interface check
var _ ReportRepository = (*PostgresReportRepo)(nil)
