package httpserver

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"net/http"
	"strings"
)

const (
	assetsCacheControl    = "public, max-age=604800, stale-while-revalidate=86400"
	devAssetsCacheControl = "no-cache"
)

// AssetsWithCache serves fsys with Cache-Control, Vary, and ETag handling. Requests are
// expected to arrive with the mount prefix already stripped.
func AssetsWithCache(fsys fs.FS, dev bool) http.Handler {
	etags := map[string]string{}
	_ = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if et, err := fileETag(fsys, path); err == nil {
			etags["/"+path] = et
		}
		return nil
	})
	files := http.FileServer(http.FS(fsys))
	cacheControl := assetsCacheControl
	if dev {
		cacheControl = devAssetsCacheControl
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Accept-Encoding")
		w.Header().Set("Cache-Control", cacheControl)
		// in dev mode files change under us, so hashes are not precomputed
		et := etags[r.URL.Path]
		if dev {
			et, _ = fileETag(fsys, strings.TrimPrefix(r.URL.Path, "/"))
		}
		if et != "" {
			w.Header().Set("ETag", et)
			if etagMatches(r.Header.Get("If-None-Match"), et) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

func fileETag(fsys fs.FS, path string) (string, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, nil
}
