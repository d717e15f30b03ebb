// Command albumdeck はJSONPlaceholderのユーザー・アルバム・写真を閲覧するWebアプリケーション。
//
// サブコマンド:
//
//	albumdeck [serve]     Webサーバーを起動する（デフォルト）
//	albumdeck migrate     セッションストアのマイグレーションを適用する
//	albumdeck healthcheck 起動中のサーバーの /health を確認する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/albumdeck/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "albumdeck: %v\n", err)
		os.Exit(1)
	}
}
