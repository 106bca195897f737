// Package model はドメインモデルを定義する。
package model

// Street は名前と代表座標を持つ道路を表す。
// シードデータ、Overpass一括インポート、または管理者の手動追加で作成される。
type Street struct {
	ID   string
	Name string
	Lat  float64
	Lng  float64
}

// Coordinate は緯度経度のペアを表す。
type Coordinate struct {
	Lat float64
	Lng float64
}
