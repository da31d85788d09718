package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// parseUpload bounds the request body and parses the multipart form.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request, files int) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*int64(files)+1024*1024) // extra 1MB for form overhead
	return r.ParseMultipartForm(32 << 20)
}

// tempDir creates a request-scoped directory under the work dir.
func (s *Server) tempDir(kind string) (string, error) {
	root := filepath.Join(s.cfg.WorkDir, kind)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(root, kind+"-")
}

// saveUpload copies an uploaded file into dir under its sanitized name.
func saveUpload(fh *multipart.FileHeader, dir string, limit int64) (string, error) {
	if fh.Size > limit {
		return "", fmt.Errorf("%s exceeds max size (%d bytes)", fh.Filename, limit)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	path := filepath.Join(dir, sanitizeFilename(fh.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("store %s: %w", fh.Filename, err)
	}
	if n > limit {
		return "", fmt.Errorf("%s exceeds max size (%d bytes)", fh.Filename, limit)
	}
	return path, nil
}

func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	if fhs := r.MultipartForm.File[field]; len(fhs) > 0 {
		return fhs[0]
	}
	return nil
}

// formBool parses an optional boolean form field.
func formBool(r *http.Request, field string, fallback bool) (bool, error) {
	v := r.FormValue(field)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", field, v)
	}
	return b, nil
}

// outputName sanitizes a requested output file name, defaulting and
// forcing a .pdf extension.
func outputName(requested, fallback string) string {
	name := sanitizeFilename(requested)
	if requested == "" || name == "unnamed" {
		return fallback
	}
	if !isPDF(name) {
		name += ".pdf"
	}
	return name
}

func serveFile(w http.ResponseWriter, r *http.Request, path string) {
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filepath.Base(path)}))
	http.ServeFile(w, r, path)
}
