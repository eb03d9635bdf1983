package server

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed public/*
var publicFS embed.FS

// staticHandler serves the embedded frontend. Any path that doesn't start
// with /api/ and isn't a real file gets index.html.
func staticHandler() http.Handler {
	sub, err := fs.Sub(publicFS, "public")
	if err != nil {
		panic("failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Unmatched API routes end up here; they are 404s, not assets.
		if strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}

		if path != "/" {
			cleanPath := strings.TrimPrefix(path, "/")
			if f, err := sub.Open(cleanPath); err == nil {
				f.Close()
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
