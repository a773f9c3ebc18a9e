package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// 1x1の透過GIF
var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

func TestLocalStore_Save_GIF(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "/media", 1024)

	rel, err := store.Save(context.Background(), bytes.NewReader(smallGIF))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(rel, "posts/") || !strings.HasSuffix(rel, ".gif") {
		t.Errorf("保存先パスが不正: %q", rel)
	}

	saved, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("保存されたファイルが読めません: %v", err)
	}
	if !bytes.Equal(saved, smallGIF) {
		t.Error("保存内容がアップロード内容と一致しません")
	}

	if got := store.URL(rel); got != "/media/"+rel {
		t.Errorf("URL = %q, want %q", got, "/media/"+rel)
	}
}

func TestLocalStore_Save_Rejects(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/media/", 16)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"テキストファイル", []byte("hello"), ErrUnsupportedType},
		{"空ファイル", nil, ErrEmpty},
		{"上限超過", smallGIF, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save(context.Background(), bytes.NewReader(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if !IsUserError(err) {
				t.Error("入力起因のエラーとして判定されるべき")
			}
		})
	}
}

func TestLocalStore_Remove(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "/media/", 1024)
	ctx := context.Background()

	rel, err := store.Save(ctx, bytes.NewReader(smallGIF))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Remove(ctx, rel); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, rel)); !os.IsNotExist(err) {
		t.Error("削除後もファイルが残っています")
	}

	// 存在しないファイルと空パスはエラーにしない
	if err := store.Remove(ctx, rel); err != nil {
		t.Errorf("存在しないファイルの削除でエラー: %v", err)
	}
	if err := store.Remove(ctx, ""); err != nil {
		t.Errorf("空パスの削除でエラー: %v", err)
	}
}

func TestLocalStore_URL_Empty(t *testing.T) {
	if got := NewLocalStore("x", "/media/", 1).URL(""); got != "" {
		t.Errorf("URL(\"\") = %q, want empty", got)
	}
}
