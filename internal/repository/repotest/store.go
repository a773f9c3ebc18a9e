// Package repotest はテスト専用のインメモリリポジトリ実装を提供する。
// 各パッケージの_test.goから共有して使うためのもので、本番コードからimportしてはならない。
// 外部キー制約（CASCADE / SET NULL）はPostgreSQLのスキーマと同じ規則で再現する。
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository"
)

// Store は全エンティティを保持するインメモリストア。
type Store struct {
	mu            sync.RWMutex
	users         map[string]*model.User
	sessions      map[string]*model.Session
	communities   map[string]*model.Community
	articles      map[string]*model.Article
	comments      map[string]*model.Comment
	subscriptions map[string]*model.Subscription
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		users:         make(map[string]*model.User),
		sessions:      make(map[string]*model.Session),
		communities:   make(map[string]*model.Community),
		articles:      make(map[string]*model.Article),
		comments:      make(map[string]*model.Comment),
		subscriptions: make(map[string]*model.Subscription),
	}
}

// Users はUserRepositoryを返す。
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Sessions はSessionRepositoryを返す。
func (s *Store) Sessions() repository.SessionRepository { return sessionRepo{s} }

// Communities はCommunityRepositoryを返す。
func (s *Store) Communities() repository.CommunityRepository { return communityRepo{s} }

// Articles はArticleRepositoryを返す。
func (s *Store) Articles() repository.ArticleRepository { return articleRepo{s} }

// Comments はCommentRepositoryを返す。
func (s *Store) Comments() repository.CommentRepository { return commentRepo{s} }

// Subscriptions はSubscriptionRepositoryを返す。
func (s *Store) Subscriptions() repository.SubscriptionRepository { return subscriptionRepo{s} }

// DeleteArticle は投稿を削除し、コメントをCASCADE削除する。
func (s *Store) DeleteArticle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.articles, id)
	for cid, c := range s.comments {
		if c.ArticleID == id {
			delete(s.comments, cid)
		}
	}
}

// DeleteCommunity はコミュニティを削除し、参照する投稿のcommunity_idをnilに戻す。
func (s *Store) DeleteCommunity(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.communities, id)
	for _, a := range s.articles {
		if a.CommunityID != nil && *a.CommunityID == id {
			a.CommunityID = nil
		}
	}
}

// ArticleCount は保存されている投稿数を返す。
func (s *Store) ArticleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

// CommentCount は保存されているコメント数を返す。
func (s *Store) CommentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comments)
}

// SubscriptionCount は保存されている購読数を返す。
func (s *Store) SubscriptionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscriptions)
}

// SeedUser はテスト用ユーザーを登録する。PasswordHashは呼び出し側で設定する。
func (s *Store) SeedUser(username, passwordHash string) *model.User {
	now := time.Now()
	u := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users().Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

// SeedCommunity はテスト用コミュニティを登録する。
func (s *Store) SeedCommunity(slug, title string) *model.Community {
	c := &model.Community{ID: uuid.New().String(), Title: title, Slug: slug, CreatedAt: time.Now()}
	if err := s.Communities().Create(context.Background(), c); err != nil {
		panic(err)
	}
	return c
}

// SeedArticle はテスト用投稿を登録する。
func (s *Store) SeedArticle(author *model.User, community *model.Community, text string, createdAt time.Time) *model.Article {
	a := &model.Article{
		ID:        uuid.New().String(),
		Text:      text,
		AuthorID:  author.ID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if community != nil {
		id := community.ID
		a.CommunityID = &id
	}
	if err := s.Articles().Create(context.Background(), a); err != nil {
		panic(err)
	}
	return a
}

// --- users ---

type userRepo struct{ s *Store }

func (r userRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r userRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.userByName(username), nil
}

func (s *Store) userByName(username string) *model.User {
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (r userRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.userByName(user.Username) != nil {
		return fmt.Errorf("ユーザー名 %q: %w", user.Username, repository.ErrDuplicate)
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r userRepo) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return fmt.Errorf("ユーザーが見つかりません: %s", id)
	}
	delete(r.s.users, id)
	for aid, a := range r.s.articles {
		if a.AuthorID == id {
			delete(r.s.articles, aid)
		}
	}
	for cid, c := range r.s.comments {
		if _, ok := r.s.articles[c.ArticleID]; !ok || c.AuthorID == id {
			delete(r.s.comments, cid)
		}
	}
	for sid, sub := range r.s.subscriptions {
		if sub.SubscriberID == id || sub.TargetID == id {
			delete(r.s.subscriptions, sid)
		}
	}
	for sid, sess := range r.s.sessions {
		if sess.UserID == id {
			delete(r.s.sessions, sid)
		}
	}
	return nil
}

// --- sessions ---

type sessionRepo struct{ s *Store }

func (r sessionRepo) Create(_ context.Context, session *model.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *session
	r.s.sessions[session.ID] = &cp
	return nil
}

func (r sessionRepo) FindUserBySessionID(_ context.Context, sessionID string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok || !sess.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	u, ok := r.s.users[sess.UserID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r sessionRepo) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

func (r sessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

// --- communities ---

type communityRepo struct{ s *Store }

func (r communityRepo) FindByID(_ context.Context, id string) (*model.Community, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if c, ok := r.s.communities[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r communityRepo) FindBySlug(_ context.Context, slug string) (*model.Community, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.communities {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r communityRepo) List(_ context.Context) ([]*model.Community, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.Community, 0, len(r.s.communities))
	for _, c := range r.s.communities {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r communityRepo) Create(_ context.Context, c *model.Community) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.communities {
		if existing.Slug == c.Slug {
			return fmt.Errorf("slug %q: %w", c.Slug, repository.ErrDuplicate)
		}
	}
	cp := *c
	r.s.communities[c.ID] = &cp
	return nil
}

// --- articles ---

type articleRepo struct{ s *Store }

func (s *Store) withRefs(a *model.Article) *model.ArticleWithRefs {
	out := &model.ArticleWithRefs{Article: *a}
	if a.CommunityID != nil {
		id := *a.CommunityID
		out.CommunityID = &id
		if c, ok := s.communities[id]; ok {
			out.CommunitySlug = c.Slug
			out.CommunityTitle = c.Title
		}
	}
	if u, ok := s.users[a.AuthorID]; ok {
		out.AuthorUsername = u.Username
	}
	return out
}

func (s *Store) matches(a *model.Article, f model.ArticleFilter) bool {
	if f.CommunityID != "" && (a.CommunityID == nil || *a.CommunityID != f.CommunityID) {
		return false
	}
	if f.AuthorID != "" && a.AuthorID != f.AuthorID {
		return false
	}
	if f.SubscriberID != "" {
		for _, sub := range s.subscriptions {
			if sub.SubscriberID == f.SubscriberID && sub.TargetID == a.AuthorID {
				return true
			}
		}
		return false
	}
	return true
}

func (r articleRepo) FindByID(_ context.Context, id string) (*model.ArticleWithRefs, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if a, ok := r.s.articles[id]; ok {
		return r.s.withRefs(a), nil
	}
	return nil, nil
}

func (r articleRepo) Create(_ context.Context, a *model.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[a.AuthorID]; !ok {
		return fmt.Errorf("著者が存在しません: %s", a.AuthorID)
	}
	cp := *a
	if a.CommunityID != nil {
		id := *a.CommunityID
		cp.CommunityID = &id
	}
	r.s.articles[a.ID] = &cp
	return nil
}

func (r articleRepo) Update(_ context.Context, a *model.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.articles[a.ID]
	if !ok {
		return fmt.Errorf("投稿が見つかりません: %s", a.ID)
	}
	existing.Text = a.Text
	existing.Image = a.Image
	existing.UpdatedAt = a.UpdatedAt
	existing.CommunityID = nil
	if a.CommunityID != nil {
		id := *a.CommunityID
		existing.CommunityID = &id
	}
	return nil
}

func (r articleRepo) filtered(f model.ArticleFilter) []*model.Article {
	var out []*model.Article
	for _, a := range r.s.articles {
		if r.s.matches(a, f) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r articleRepo) List(_ context.Context, f model.ArticleFilter, limit, offset int) ([]*model.ArticleWithRefs, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.filtered(f)
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	out := make([]*model.ArticleWithRefs, 0, end-offset)
	for _, a := range all[offset:end] {
		out = append(out, r.s.withRefs(a))
	}
	return out, nil
}

func (r articleRepo) Count(_ context.Context, f model.ArticleFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.filtered(f)), nil
}

// --- comments ---

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *model.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.articles[c.ArticleID]; !ok {
		return fmt.Errorf("投稿が存在しません: %s", c.ArticleID)
	}
	cp := *c
	r.s.comments[c.ID] = &cp
	return nil
}

func (r commentRepo) ListByArticle(_ context.Context, articleID string) ([]*model.CommentWithAuthor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.CommentWithAuthor
	for _, c := range r.s.comments {
		if c.ArticleID != articleID {
			continue
		}
		cw := &model.CommentWithAuthor{Comment: *c}
		if u, ok := r.s.users[c.AuthorID]; ok {
			cw.AuthorUsername = u.Username
		}
		out = append(out, cw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- subscriptions ---

type subscriptionRepo struct{ s *Store }

func (s *Store) findSubscription(subscriberID, targetID string) *model.Subscription {
	for _, sub := range s.subscriptions {
		if sub.SubscriberID == subscriberID && sub.TargetID == targetID {
			return sub
		}
	}
	return nil
}

func (r subscriptionRepo) Create(_ context.Context, subscriberID, targetID string) (*model.Subscription, error) {
	if subscriberID == targetID {
		return nil, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing := r.s.findSubscription(subscriberID, targetID); existing != nil {
		cp := *existing
		return &cp, nil
	}
	sub := &model.Subscription{
		ID:           uuid.New().String(),
		SubscriberID: subscriberID,
		TargetID:     targetID,
		CreatedAt:    time.Now(),
	}
	r.s.subscriptions[sub.ID] = sub
	cp := *sub
	return &cp, nil
}

func (r subscriptionRepo) Delete(_ context.Context, subscriberID, targetID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing := r.s.findSubscription(subscriberID, targetID); existing != nil {
		delete(r.s.subscriptions, existing.ID)
	}
	return nil
}

func (r subscriptionRepo) Exists(_ context.Context, subscriberID, targetID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.findSubscription(subscriberID, targetID) != nil, nil
}

func (r subscriptionRepo) CountByTarget(_ context.Context, targetID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, sub := range r.s.subscriptions {
		if sub.TargetID == targetID {
			n++
		}
	}
	return n, nil
}
