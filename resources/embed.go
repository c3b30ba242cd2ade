package resources

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl content/*.md
var files embed.FS

// Templates exposes the embedded html/template sources.
func Templates() (fs.FS, error) {
	return fs.Sub(files, "templates")
}

// Content exposes the embedded page copy (Markdown with YAML front matter).
func Content() (fs.FS, error) {
	return fs.Sub(files, "content")
}
