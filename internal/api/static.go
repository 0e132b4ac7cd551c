package api

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// servePage returns a handler that always serves one named page.
func (s *Server) servePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, s.pages, name)
	}
}

// handleFallback serves a static file when the path names one, and the order
// form for anything else.
func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name != "" && name != "index.html" {
		if info, err := fs.Stat(s.pages, name); err == nil && !info.IsDir() {
			http.ServeFileFS(w, r, s.pages, name)
			return
		}
	}
	s.serveIndex(w, r)
}

// serveIndex writes index.html directly. http.ServeFileFS would redirect
// requests for /index.html to ./, and the fallback must answer every path.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(s.pages, "index.html")
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}
