package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

const (
	htmlExt = ".html"
	gzExt   = ".gz"
)

// mimesByExt lists the only extensions served as static assets.
var mimesByExt = map[string]string{
	htmlExt: "text/html",
	".js":   "text/javascript",
	".json": "application/json",
	".css":  "text/css",
}

// staticFile is one logical asset. When both name and name.gz exist on
// disk, the compressed file wins.
type staticFile struct {
	logicalName  string
	physicalPath string
	mimeType     string
	compressed   bool

	mu      sync.Mutex
	content []byte
}

func (f *staticFile) read(cache bool) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.content != nil {
		return f.content, nil
	}
	data, err := os.ReadFile(f.physicalPath)
	if err != nil {
		return nil, err
	}
	if cache {
		f.content = data
	}
	return data, nil
}

// scanStatics inspects the regular files in dir and keeps those with a
// recognized extension, keyed by logical name. Subdirectories are ignored.
func scanStatics(dir string) (map[string]*staticFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read static dir: %w", err)
	}

	files := make(map[string]*staticFile)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		compressed := strings.HasSuffix(name, gzExt)
		if compressed {
			name = strings.TrimSuffix(name, gzExt)
		}
		mime, ok := mimesByExt[filepath.Ext(name)]
		if !ok {
			continue
		}
		if existing, ok := files[name]; ok && existing.compressed {
			continue
		}
		files[name] = &staticFile{
			logicalName:  name,
			physicalPath: filepath.Join(dir, entry.Name()),
			mimeType:     mime,
			compressed:   compressed,
		}
	}
	return files, nil
}

// mountStatics registers the assets of one static path on r. The URL prefix
// is the configured path, the files are read from root/path.
func (s *Server) mountStatics(r chi.Router, root, path string) error {
	prefix := strings.Trim(filepath.ToSlash(path), "/")
	files, err := scanStatics(filepath.Join(root, path))
	if err != nil {
		return err
	}

	if index, ok := files["index.html"]; ok {
		h := s.fileHandler(index)
		for _, route := range []string{"/", "/index", "/index.html"} {
			r.Get(route, h)
		}
	}

	r.Get("/"+prefix+"/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		file, ok := files[name]
		if !ok {
			s.resp.notFound(w, name)
			return
		}
		s.fileHandler(file)(w, req)
	})
	return nil
}

func (s *Server) fileHandler(f *staticFile) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, err := f.read(!s.cfg.DisableStaticCache)
		if err != nil {
			s.logger.Error("static read failed", "path", f.physicalPath, "error", err)
			s.resp.internalError(w, err)
			return
		}
		w.Header().Set("Content-Type", f.mimeType)
		if f.compressed {
			w.Header().Set("Content-Encoding", "gzip")
		}
		_, _ = w.Write(content)
	}
}
