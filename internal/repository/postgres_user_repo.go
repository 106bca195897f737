package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lucasmorforio/ubalerta/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// userColumns はSELECT句の共通カラムリスト。
const userColumns = `id, google_id, name, email, photo_url, is_banned, role, created_at`

// scanUser は1行をmodel.Userに読み取る。google_idのNULLは空文字列として扱う。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var googleID sql.NullString
	err := row.Scan(
		&user.ID, &googleID, &user.Name, &user.Email,
		&user.PhotoURL, &user.IsBanned, &user.Role, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user.GoogleID = googleID.String
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByGoogleID はGoogleの外部IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。GoogleIDが空文字列の場合はNULLとして保存する
// （google_idのUNIQUE制約と未紐付けゴーストアカウントの共存のため）。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	var googleID sql.NullString
	if user.GoogleID != "" {
		googleID = sql.NullString{String: user.GoogleID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, google_id, name, email, photo_url, is_banned, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, googleID, user.Name, user.Email,
		user.PhotoURL, user.IsBanned, user.Role, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// BindGoogleID はゴーストアカウントに外部IDとプロフィールを紐付ける。
// WHERE句でgoogle_id IS NULLを条件にし、紐付け済みの行は変更しない。
func (r *PostgresUserRepo) BindGoogleID(ctx context.Context, userID, googleID, name, photoURL string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET google_id = $2, name = $3, photo_url = $4
		 WHERE id = $1 AND google_id IS NULL`,
		userID, googleID, name, photoURL,
	)
	if err != nil {
		return fmt.Errorf("failed to bind google ID: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found or already bound: %s", userID)
	}
	return nil
}

// SetBanned はユーザーのBANフラグを設定する。冪等。
func (r *PostgresUserRepo) SetBanned(ctx context.Context, id string, banned bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_banned = $2 WHERE id = $1`, id, banned)
	if err != nil {
		return fmt.Errorf("failed to set banned flag: %w", err)
	}
	return nil
}

// UpdateRole はユーザーの役割を更新する。
func (r *PostgresUserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
