// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限レベルを表す。
// 能力は resident ⊂ admin ⊂ owner の順に包含関係を持つ。
type Role string

const (
	// RoleResident は一般住民。自分の相談・通報の投稿と他者の通報への旗立てのみ可能。
	RoleResident Role = "resident"
	// RoleAdmin は管理者。住民の能力に加え、道路の追加・削除と任意の通報削除が可能。
	RoleAdmin Role = "admin"
	// RoleOwner は運営者。管理者の能力に加え、任意のメールアドレスの管理者昇格が可能。
	RoleOwner Role = "owner"
)

// roleLevels は役割の序列。未知の役割は0（residentより下）として扱う。
var roleLevels = map[Role]int{
	RoleResident: 1,
	RoleAdmin:    2,
	RoleOwner:    3,
}

// AtLeast はこの役割がrequired以上の能力を持つかを返す。
// すべてのロールゲートはこのメソッドを経由する。
func (r Role) AtLeast(required Role) bool {
	return roleLevels[r] >= roleLevels[required]
}

// IsValid は既知の役割かを返す。
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// User はサービス利用ユーザーを表す。
// GoogleIDが空のレコードは「ゴーストアカウント」: 管理者昇格によって
// メールアドレスだけで先行作成され、初回ログイン時にIDが紐付けられる。
type User struct {
	ID        string
	GoogleID  string // 空文字列は未紐付け（ゴーストアカウント）を意味する
	Name      string
	Email     string
	PhotoURL  string
	IsBanned  bool
	Role      Role
	CreatedAt time.Time
}

// IsGhost は外部IDが未紐付けのゴーストアカウントかを返す。
func (u *User) IsGhost() bool {
	return u.GoogleID == ""
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
