// Package site serves the embedded board viewer.
package site

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register attaches the viewer to r: the index page at / and its static
// files under /assets/.
func Register(r chi.Router) {
	if r == nil {
		panic("router is nil")
	}

	files := http.FileServer(FS())
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, req)
	})
	r.Get("/assets/*", files.ServeHTTP)
}
