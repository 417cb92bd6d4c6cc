// Package web holds the embedded templates and static assets.
package web

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"
)

var (
	//go:embed templates
	Templates embed.FS

	//go:embed static
	static embed.FS
)

// assetTypes covers extensions that minimal container images have no
// mime.types entry for.
var assetTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".woff2": "font/woff2",
}

// StaticHandler serves web/static with a public Cache-Control of maxAge. The
// handler expects the /static/ prefix to be stripped already.
func StaticHandler(maxAge time.Duration) http.Handler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	files := http.FileServer(http.FS(sub))
	cacheControl := "public, max-age=" + strconv.Itoa(int(maxAge.Seconds()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ext := path.Ext(r.URL.Path)
		if typ, ok := assetTypes[ext]; ok && mime.TypeByExtension(ext) == "" {
			w.Header().Set("Content-Type", typ)
		}
		w.Header().Set("Cache-Control", cacheControl)
		files.ServeHTTP(w, r)
	})
}
