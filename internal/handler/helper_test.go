package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/yatube/internal/article"
	"github.com/hitoshi/yatube/internal/auth"
	"github.com/hitoshi/yatube/internal/cache"
	"github.com/hitoshi/yatube/internal/feed"
	"github.com/hitoshi/yatube/internal/media"
	"github.com/hitoshi/yatube/internal/middleware"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/render"
	"github.com/hitoshi/yatube/internal/repository/repotest"
	"github.com/hitoshi/yatube/internal/security"
	"github.com/hitoshi/yatube/internal/subscription"
	"github.com/hitoshi/yatube/internal/user"
)

const (
	testCSRFToken  = "test-csrf-token"
	testAdminToken = "secret"
	testPassword   = "password123"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// fakeHealthChecker はHealthCheckerのテスト用実装。
type fakeHealthChecker struct {
	err error
}

func (f *fakeHealthChecker) PingContext(context.Context) error { return f.err }

// testApp は実サービスをインメモリリポジトリの上に組み立てたテスト用アプリケーション。
type testApp struct {
	t      *testing.T
	store  *repotest.Store
	auth   *auth.Service
	images *media.LocalStore
	cache  *cache.MemoryPageCache
	health *fakeHealthChecker
	router http.Handler
}

type testAppOption func(*RouterDeps)

func withAdminToken(token string) testAppOption {
	return func(d *RouterDeps) { d.AdminToken = token }
}

func newTestApp(t *testing.T, opts ...testAppOption) *testApp {
	t.Helper()

	store := repotest.NewStore()
	images := media.NewLocalStore(t.TempDir(), "/media/", 1<<20)
	renderer, err := render.New(images.URL)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	authSvc := auth.NewService(store.Users(), store.Sessions(), auth.ServiceConfig{
		SessionMaxAge: 3600,
		BcryptCost:    bcrypt.MinCost,
	})
	feedSvc := feed.NewService(store.Articles(), store.Communities(), store.Users(), store.Subscriptions(), 10)
	articleSvc := article.NewService(store.Articles(), store.Comments(), store.Communities(), images, security.NewTextSanitizer())
	subSvc := subscription.NewService(store.Users(), store.Subscriptions())
	userSvc := user.NewService(store.Users(), store.Articles(), images)

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(limiter.Stop)

	pageCache := cache.NewMemoryPageCache(time.Minute)
	health := &fakeHealthChecker{}

	deps := &RouterDeps{
		Renderer:            renderer,
		UserResolver:        authSvc,
		RateLimiter:         limiter,
		MaxBodySize:         2 << 20,
		FeedService:         feedSvc,
		ArticleService:      articleSvc,
		SubscriptionService: subSvc,
		AuthService:         authSvc,
		UserService:         userSvc,
		AuthConfig:          AuthHandlerConfig{SessionMaxAge: 3600},
		PageCache:           pageCache,
		HealthChecker:       health,
		AdminToken:          testAdminToken,
		MediaURL:            "/media/",
		MediaRoot:           images.Root(),
	}
	for _, opt := range opts {
		opt(deps)
	}

	return &testApp{
		t:      t,
		store:  store,
		auth:   authSvc,
		images: images,
		cache:  pageCache,
		health: health,
		router: NewRouter(deps),
	}
}

// signup はユーザーを登録し、ログイン済みのセッションCookieを返す。
func (a *testApp) signup(username string) (*model.User, *http.Cookie) {
	a.t.Helper()
	u, session, err := a.auth.Signup(context.Background(), auth.SignupInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	if err != nil {
		a.t.Fatalf("Signup(%s): %v", username, err)
	}
	return u, &http.Cookie{Name: middleware.SessionCookieName, Value: session.ID}
}

func (a *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// get はGETリクエストを送る。sessionがnilなら未ログイン。
func (a *testApp) get(path string, session *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if session != nil {
		req.AddCookie(session)
	}
	return a.serve(req)
}

// postForm はCSRFトークンを添えてフォームを送信する。
func (a *testApp) postForm(path string, values url.Values, session *http.Cookie) *httptest.ResponseRecorder {
	if values == nil {
		values = url.Values{}
	}
	values.Set(middleware.CSRFFormField, testCSRFToken)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: testCSRFToken})
	if session != nil {
		req.AddCookie(session)
	}
	return a.serve(req)
}

// postMultipart はCSRFトークンを添えてファイル付きフォームを送信する。imageがnilならファイルなし。
func (a *testApp) postMultipart(path string, fields map[string]string, image []byte, session *http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			a.t.Fatalf("WriteField: %v", err)
		}
	}
	if err := mw.WriteField(middleware.CSRFFormField, testCSRFToken); err != nil {
		a.t.Fatalf("WriteField: %v", err)
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "pic.gif")
		if err != nil {
			a.t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(image)); err != nil {
			a.t.Fatalf("write image: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		a.t.Fatalf("multipart close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: testCSRFToken})
	if session != nil {
		req.AddCookie(session)
	}
	return a.serve(req)
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("ステータスコード: got %d, want %d\nbody: %s", rec.Code, want, rec.Body.String())
	}
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, wantLocation string) {
	t.Helper()
	assertStatus(t, rec, http.StatusFound)
	if got := rec.Header().Get("Location"); got != wantLocation {
		t.Errorf("Location: got %q, want %q", got, wantLocation)
	}
}

func assertContains(t *testing.T, rec *httptest.ResponseRecorder, substr string) {
	t.Helper()
	if !strings.Contains(rec.Body.String(), substr) {
		t.Errorf("レスポンスに %q が含まれていません\nbody: %s", substr, rec.Body.String())
	}
}

func assertNotContains(t *testing.T, rec *httptest.ResponseRecorder, substr string) {
	t.Helper()
	if strings.Contains(rec.Body.String(), substr) {
		t.Errorf("レスポンスに %q が含まれています", substr)
	}
}

var errTestBoom = errors.New("boom")
