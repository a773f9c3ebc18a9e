package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/yatube/internal/model"
)

// PostgresCommunityRepo はPostgreSQLを使用したコミュニティリポジトリ。
type PostgresCommunityRepo struct {
	db *sql.DB
}

// NewPostgresCommunityRepo はPostgresCommunityRepoを生成する。
func NewPostgresCommunityRepo(db *sql.DB) *PostgresCommunityRepo {
	return &PostgresCommunityRepo{db: db}
}

const communityColumns = `id, title, slug, description, created_at`

func (r *PostgresCommunityRepo) findOne(ctx context.Context, where string, arg string) (*model.Community, error) {
	c := &model.Community{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+communityColumns+` FROM communities WHERE `+where+` = $1`,
		arg,
	).Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindByID は指定IDのコミュニティを取得する。見つからない場合はnilを返す。
func (r *PostgresCommunityRepo) FindByID(ctx context.Context, id string) (*model.Community, error) {
	c, err := r.findOne(ctx, "id", id)
	if err != nil {
		return nil, fmt.Errorf("コミュニティの取得に失敗しました: %w", err)
	}
	return c, nil
}

// FindBySlug はslugでコミュニティを取得する。見つからない場合はnilを返す。
func (r *PostgresCommunityRepo) FindBySlug(ctx context.Context, slug string) (*model.Community, error) {
	c, err := r.findOne(ctx, "slug", slug)
	if err != nil {
		return nil, fmt.Errorf("slugによるコミュニティの検索に失敗しました: %w", err)
	}
	return c, nil
}

// List は全コミュニティをタイトル順で返す。
func (r *PostgresCommunityRepo) List(ctx context.Context) ([]*model.Community, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+communityColumns+` FROM communities ORDER BY title ASC, slug ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("コミュニティ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var communities []*model.Community
	for rows.Next() {
		c := &model.Community{}
		if err := rows.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("コミュニティ行の読み取りに失敗しました: %w", err)
		}
		communities = append(communities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コミュニティ一覧の走査に失敗しました: %w", err)
	}
	return communities, nil
}

// Create はコミュニティを作成する。
func (r *PostgresCommunityRepo) Create(ctx context.Context, c *model.Community) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO communities (id, title, slug, description, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Title, c.Slug, c.Description, c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("slug %q: %w", c.Slug, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("コミュニティの作成に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CommunityRepository = (*PostgresCommunityRepo)(nil)
