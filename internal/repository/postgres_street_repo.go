package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lucasmorforio/ubalerta/internal/model"
)

// PostgresStreetRepo はPostgreSQLを使用した街路リポジトリ。
type PostgresStreetRepo struct {
	db *sql.DB
}

// NewPostgresStreetRepo はPostgresStreetRepoを生成する。
func NewPostgresStreetRepo(db *sql.DB) *PostgresStreetRepo {
	return &PostgresStreetRepo{db: db}
}

// FindByID は指定IDの街路を取得する。見つからない場合はnilを返す。
func (r *PostgresStreetRepo) FindByID(ctx context.Context, id string) (*model.Street, error) {
	street := &model.Street{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, lat, lng FROM streets WHERE id = $1`, id).
		Scan(&street.ID, &street.Name, &street.Lat, &street.Lng)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find street by ID: %w", err)
	}
	return street, nil
}

// FindByNameLike は名称の部分一致（大文字小文字区別なし）で最初の街路を返す。
func (r *PostgresStreetRepo) FindByNameLike(ctx context.Context, name string) (*model.Street, error) {
	street := &model.Street{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, lat, lng FROM streets WHERE name ILIKE $1 ORDER BY name LIMIT 1`,
		"%"+name+"%").
		Scan(&street.ID, &street.Name, &street.Lat, &street.Lng)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find street by name: %w", err)
	}
	return street, nil
}

// Search は全検索語を含む街路をAND条件で検索する。
func (r *PostgresStreetRepo) Search(ctx context.Context, words []string, limit int) ([]*model.Street, error) {
	if len(words) == 0 {
		return nil, nil
	}

	conditions := make([]string, 0, len(words))
	args := make([]interface{}, 0, len(words)+1)
	for i, word := range words {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", i+1))
		args = append(args, "%"+word+"%")
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT id, name, lat, lng FROM streets WHERE %s ORDER BY name LIMIT $%d`,
		strings.Join(conditions, " AND "), len(words)+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search streets: %w", err)
	}
	defer rows.Close()

	var streets []*model.Street
	for rows.Next() {
		street := &model.Street{}
		if err := rows.Scan(&street.ID, &street.Name, &street.Lat, &street.Lng); err != nil {
			return nil, fmt.Errorf("failed to scan street: %w", err)
		}
		streets = append(streets, street)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate streets: %w", err)
	}
	return streets, nil
}

// Create は街路を作成する。
func (r *PostgresStreetRepo) Create(ctx context.Context, street *model.Street) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO streets (id, name, lat, lng) VALUES ($1, $2, $3, $4)`,
		street.ID, street.Name, street.Lat, street.Lng,
	)
	if err != nil {
		return fmt.Errorf("failed to insert street: %w", err)
	}
	return nil
}

// Delete は街路と配下のアラート・通報を1トランザクションで削除する。
func (r *PostgresStreetRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM flags WHERE report_id IN (SELECT id FROM reports WHERE street_id = $1)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flags for street: %w", err)
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM reports WHERE street_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reports for street: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM streets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete street: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("street not found: %s", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertBatch は名称重複を無視して街路を一括挿入する。シード投入で使用する。
func (r *PostgresStreetRepo) UpsertBatch(ctx context.Context, streets []*model.Street) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO streets (id, name, lat, lng) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, street := range streets {
		if _, err := stmt.ExecContext(ctx, street.ID, street.Name, street.Lat, street.Lng); err != nil {
			return fmt.Errorf("failed to upsert street %q: %w", street.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceAll は既存データを全て消去し、指定の街路一覧で置き換える。OSM一括インポートで使用する。
func (r *PostgresStreetRepo) ReplaceAll(ctx context.Context, streets []*model.Street) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"flags", "reports", "streets"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO streets (id, name, lat, lng) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, street := range streets {
		if _, err := stmt.ExecContext(ctx, street.ID, street.Name, street.Lat, street.Lng); err != nil {
			return fmt.Errorf("failed to insert street %q: %w", street.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ StreetRepository = (*PostgresStreetRepo)(nil)
