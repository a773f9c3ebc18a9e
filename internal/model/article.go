package model

import "time"

// Article は著者が書いた1件の投稿を表す。
// CreatedAtは作成時に1度だけ設定され、以後変更されない。
type Article struct {
	ID          string
	Text        string
	CommunityID *string // 未所属の場合はnil。コミュニティ削除時はNULLに戻る
	AuthorID    string
	Image       string // MEDIA_ROOTからの相対パス。画像なしは空文字
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ArticleWithRefs は投稿に著者名とコミュニティ情報を結合した表示用モデル。
type ArticleWithRefs struct {
	Article
	AuthorUsername string
	CommunitySlug  string
	CommunityTitle string
}

// HasCommunity は投稿がコミュニティに所属しているかを返す。
func (a *ArticleWithRefs) HasCommunity() bool {
	return a.CommunitySlug != ""
}

// ArticleFilter はフィード取得時の絞り込み条件を表す。
// ゼロ値のフィールドは条件に含めない。全フィールドがゼロ値なら全投稿が対象。
type ArticleFilter struct {
	CommunityID  string
	AuthorID     string
	SubscriberID string // このユーザーが購読している著者の投稿に絞り込む
}
