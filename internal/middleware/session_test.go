package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/yatube/internal/model"
)

// mockUserResolver はUserResolverのモック。
type mockUserResolver struct {
	currentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockUserResolver) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	return m.currentUserFn(ctx, sessionID)
}

func serveWithSession(resolver UserResolver, cookie *http.Cookie) *model.User {
	var captured *model.User
	handler := NewSessionMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return captured
}

func TestSessionMiddleware_ValidSession_InjectsUser(t *testing.T) {
	resolver := &mockUserResolver{
		currentUserFn: func(_ context.Context, sessionID string) (*model.User, error) {
			if sessionID != "valid-session" {
				t.Errorf("sessionID = %q, want valid-session", sessionID)
			}
			return &model.User{ID: "user-1", Username: "alice"}, nil
		},
	}

	user := serveWithSession(resolver, &http.Cookie{Name: SessionCookieName, Value: "valid-session"})
	if user == nil || user.ID != "user-1" {
		t.Fatalf("user = %+v, want user-1", user)
	}
}

func TestSessionMiddleware_AnonymousCases(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		user   *model.User
		err    error
	}{
		{"Cookieなし", nil, nil, nil},
		{"空のCookie", &http.Cookie{Name: SessionCookieName, Value: ""}, nil, nil},
		{"無効なセッション", &http.Cookie{Name: SessionCookieName, Value: "expired"}, nil, nil},
		{"ストア障害", &http.Cookie{Name: SessionCookieName, Value: "x"}, nil, errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockUserResolver{
				currentUserFn: func(context.Context, string) (*model.User, error) {
					return tt.user, tt.err
				},
			}
			if user := serveWithSession(resolver, tt.cookie); user != nil {
				t.Errorf("user = %+v, want nil", user)
			}
		})
	}
}

func TestRequireLoginMiddleware(t *testing.T) {
	mw := NewRequireLoginMiddleware("/auth/login/")
	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("未ログインはログインページへ", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/create/?a=1", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusFound {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
		}
		if loc := w.Header().Get("Location"); loc != "/auth/login/?next=%2Fcreate%2F%3Fa%3D1" {
			t.Errorf("Location = %q", loc)
		}
		if called {
			t.Error("未ログインでハンドラーが呼ばれました")
		}
	})

	t.Run("ログイン済みは通す", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/create/", nil)
		req = req.WithContext(ContextWithUser(req.Context(), &model.User{ID: "u1"}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK || !called {
			t.Errorf("status = %d, called = %v", w.Code, called)
		}
	})
}

func TestUserIDFromContext(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("空のコンテキストでエラーになりません")
	}

	ctx := ContextWithUser(context.Background(), &model.User{ID: "u1"})
	id, err := UserIDFromContext(ctx)
	if err != nil || id != "u1" {
		t.Errorf("UserIDFromContext = %q, %v", id, err)
	}
}
