// Package web はgo:embedで埋め込んだシングルページUIを配信する。
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// Handler は埋め込み静的ファイルを配信するhttp.Handlerを返す。
// ルート（/）へのアクセスはindex.htmlにフォールバックする。
func Handler() (http.Handler, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub filesystem: %w", err)
	}
	return http.FileServer(http.FS(sub)), nil
}
