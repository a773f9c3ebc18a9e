// Package media は投稿画像のアップロード保存を提供する。
// 画像の種類はファイル名ではなく内容から判定する。
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// 許可する画像のMIMEタイプ
var allowedTypes = []string{"image/gif", "image/jpeg", "image/png", "image/webp"}

var (
	// ErrUnsupportedType は許可されていない種類のファイルがアップロードされた場合のエラー。
	ErrUnsupportedType = errors.New("画像ファイル（GIF, JPEG, PNG, WebP）をアップロードしてください")
	// ErrTooLarge はファイルサイズが上限を超えた場合のエラー。
	ErrTooLarge = errors.New("ファイルサイズが上限を超えています")
	// ErrEmpty は空のファイルがアップロードされた場合のエラー。
	ErrEmpty = errors.New("空のファイルはアップロードできません")
)

// Store は画像の保存先インターフェース。
type Store interface {
	// Save は画像を検証して保存し、保存先の相対パスを返す。
	Save(ctx context.Context, r io.Reader) (string, error)
	// Remove は保存済みの画像を削除する。存在しない場合は何もしない。
	Remove(ctx context.Context, relPath string) error
	// URL は相対パスから配信用URLを組み立てる。空のパスには空文字を返す。
	URL(relPath string) string
}

// LocalStore はローカルディスクに画像を保存するStore。
// ファイルは root/posts/<uuid>.<拡張子> に置かれる。
type LocalStore struct {
	root    string
	baseURL string
	maxSize int64
}

// NewLocalStore はLocalStoreを生成する。
func NewLocalStore(root, baseURL string, maxSize int64) *LocalStore {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStore{root: root, baseURL: baseURL, maxSize: maxSize}
}

// Root は保存先ディレクトリを返す。
func (s *LocalStore) Root() string {
	return s.root
}

// Save は画像を検証して保存する。
func (s *LocalStore) Save(_ context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("アップロードの読み込みに失敗しました: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > s.maxSize {
		return "", ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		return "", ErrUnsupportedType
	}

	rel := path.Join("posts", uuid.New().String()+mtype.Extension())
	dst := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("画像ファイルの作成に失敗しました: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("画像ファイルの書き込みに失敗しました: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("画像ファイルのクローズに失敗しました: %w", err)
	}

	return rel, nil
}

// Remove は保存済みの画像を削除する。
func (s *LocalStore) Remove(_ context.Context, relPath string) error {
	if relPath == "" {
		return nil
	}
	clean := path.Clean("/" + relPath)[1:]
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("画像ファイルの削除に失敗しました: %w", err)
	}
	return nil
}

// URL は相対パスから配信用URLを組み立てる。
func (s *LocalStore) URL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return s.baseURL + relPath
}

// IsUserError はエラーが利用者の入力に起因するものかを返す。
// 該当する場合はフォームのエラーとして表示する。
func IsUserError(err error) bool {
	return errors.Is(err, ErrUnsupportedType) || errors.Is(err, ErrTooLarge) || errors.Is(err, ErrEmpty)
}

var _ Store = (*LocalStore)(nil)
