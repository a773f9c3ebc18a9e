package model

import "time"

// Comment は投稿へのコメントを表す。
// 投稿または著者が削除されるとCASCADE削除される。
type Comment struct {
	ID        string
	ArticleID string
	AuthorID  string
	Text      string
	CreatedAt time.Time
}

// CommentWithAuthor はコメントに著者名を結合した表示用モデル。
type CommentWithAuthor struct {
	Comment
	AuthorUsername string
}
