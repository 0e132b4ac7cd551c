// Package web ships the static pages served next to the API: the order form,
// and the pages Stripe Checkout redirects back to.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed public
var embedded embed.FS

// Page names every FS returned by Pages must provide.
const (
	IndexPage   = "index.html"
	SuccessPage = "success.html"
	CancelPage  = "cancel.html"
)

// Pages returns the embedded pages, or the contents of dir when it is set.
// A directory is checked for the three required pages up front so a bad
// STATIC_DIR fails at startup rather than on the first request.
func Pages(dir string) (fs.FS, error) {
	if dir == "" {
		sub, err := fs.Sub(embedded, "public")
		if err != nil {
			return nil, fmt.Errorf("web: embedded pages: %w", err)
		}
		return sub, nil
	}

	fsys := os.DirFS(dir)
	for _, name := range []string{IndexPage, SuccessPage, CancelPage} {
		if _, err := fs.Stat(fsys, name); err != nil {
			return nil, fmt.Errorf("web: %s in %s: %w", name, dir, err)
		}
	}
	return fsys, nil
}
