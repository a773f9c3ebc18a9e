package model

import "time"

// Community は投稿をまとめるグループを表す。
// 管理者が作成し、アプリケーションからは削除しない。
type Community struct {
	ID          string
	Title       string
	Slug        string
	Description string
	CreatedAt   time.Time
}
