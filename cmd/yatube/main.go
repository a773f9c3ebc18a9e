// Command yatube はブログプラットフォームYatubeのWebサーバーと管理コマンドを提供する。
//
// 使い方:
//
//	yatube [serve]                                    Webサーバーを起動する
//	yatube worker                                     期限切れセッションを定期削除する
//	yatube migrate                                    マイグレーションを適用する
//	yatube healthcheck                                稼働中のサーバーの/healthを確認する
//	yatube clear-cache                                ページキャッシュを消去する
//	yatube create-community <slug> <title> [説明]     コミュニティを作成する
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/yatube/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("yatube exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
