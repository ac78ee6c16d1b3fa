package middleware

import "net/http"

// NewSecurityHeadersMiddleware はJSON APIと埋め込みUIの両方に共通の
// セキュリティレスポンスヘッダーを付与するミドルウェアを返す。
// UIはCookieベースの認証を使用するため、フレーム埋め込みを全面的に拒否する。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			next.ServeHTTP(w, r)
		})
	}
}
