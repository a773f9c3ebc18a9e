package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/yatube/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

const articleSelect = `SELECT
	a.id, a.text, a.community_id, a.author_id, a.image, a.created_at, a.updated_at,
	u.username, COALESCE(c.slug, ''), COALESCE(c.title, '')
 FROM articles a
 JOIN users u ON u.id = a.author_id
 LEFT JOIN communities c ON c.id = a.community_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*model.ArticleWithRefs, error) {
	a := &model.ArticleWithRefs{}
	var communityID sql.NullString
	err := row.Scan(
		&a.ID, &a.Text, &communityID, &a.AuthorID, &a.Image, &a.CreatedAt, &a.UpdatedAt,
		&a.AuthorUsername, &a.CommunitySlug, &a.CommunityTitle,
	)
	if err != nil {
		return nil, err
	}
	if communityID.Valid {
		id := communityID.String
		a.CommunityID = &id
	}
	return a, nil
}

// articleWhere はフィルタ条件からWHERE句と引数を組み立てる。
func articleWhere(filter model.ArticleFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.CommunityID != "" {
		add("a.community_id = $%d", filter.CommunityID)
	}
	if filter.AuthorID != "" {
		add("a.author_id = $%d", filter.AuthorID)
	}
	if filter.SubscriberID != "" {
		add("a.author_id IN (SELECT target_id FROM subscriptions WHERE subscriber_id = $%d)", filter.SubscriberID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id string) (*model.ArticleWithRefs, error) {
	a, err := scanArticle(r.db.QueryRowContext(ctx, articleSelect+` WHERE a.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	return a, nil
}

// Create は投稿を作成する。
func (r *PostgresArticleRepo) Create(ctx context.Context, a *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (id, text, community_id, author_id, image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Text, a.CommunityID, a.AuthorID, a.Image, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は投稿の本文・コミュニティ・画像を更新する。
// author_idとcreated_atは更新対象に含めない。
func (r *PostgresArticleRepo) Update(ctx context.Context, a *model.Article) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles SET text = $2, community_id = $3, image = $4, updated_at = $5 WHERE id = $1`,
		a.ID, a.Text, a.CommunityID, a.Image, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("投稿が見つかりません: %s", a.ID)
	}
	return nil
}

// List はフィルタ条件に合う投稿を新しい順に返す。
// created_atが同一の場合はidの降順で順序を安定させる。
func (r *PostgresArticleRepo) List(ctx context.Context, filter model.ArticleFilter, limit, offset int) ([]*model.ArticleWithRefs, error) {
	where, args := articleWhere(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf("%s%s ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d",
		articleSelect, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var articles []*model.ArticleWithRefs
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// Count はフィルタ条件に合う投稿の総数を返す。
func (r *PostgresArticleRepo) Count(ctx context.Context, filter model.ArticleFilter) (int, error) {
	where, args := articleWhere(filter)
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("投稿数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
