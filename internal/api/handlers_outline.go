package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgallion1/docmark/internal/bookmark"
	"github.com/dgallion1/docmark/internal/catalog"
	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/outline"
	"github.com/dgallion1/docmark/internal/outlinefile"
)

// handleBookmarks returns the outline outlineFile an uploaded PDF. format selects
// the shape: "list" (default) leveled bookmarks with ranges, "tree" the
// rebuilt hierarchy, "catalog" entries with ids and parent links.
func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r, 1); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fh := formFile(r, "file")
	if fh == nil {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	filename := sanitizeFilename(fh.Filename)
	if !isPDF(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	dir, err := s.tempDir("uploads")
	if err != nil {
		jsonError(w, "failed to create upload dir", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	path, err := saveUpload(fh, dir, s.cfg.MaxUploadBytes)
	if err != nil {
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	ctx := r.Context()
	count, err := s.engine.PageCount(ctx, path)
	if err != nil {
		jsonError(w, "read document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	roots, err := s.engine.Outline(ctx, path)
	if err != nil {
		jsonError(w, "read outline: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := map[string]any{"filename": filename, "page_count": count}
	switch format := r.FormValue("format"); format {
	case "", "list":
		marks := outline.Leveled(roots, count)
		if marks == nil {
			marks = []bookmark.Bookmark{}
		}
		resp["bookmarks"] = marks
	case "tree":
		resp["tree"] = outline.Write(outline.Leveled(roots, count), count)
	case "catalog":
		c := catalog.FromSource(filename, roots, count)
		resp["file"] = c.FileEntry()
		resp["entries"] = c.Entries
	default:
		jsonError(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleApplyOutline replaces the outline outlineFile an uploaded PDF with one read
// from an outline file and returns the resulting PDF.
func (s *Server) handleApplyOutline(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r, 2); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	doc, outlineFile := formFile(r, "file"), formFile(r, "outline")
	if doc == nil || outlineFile == nil {
		jsonError(w, "file and outline are required", http.StatusBadRequest)
		return
	}
	if !isPDF(doc.Filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(doc.Filename)), http.StatusBadRequest)
		return
	}
	p, err := outlinefile.ForFile(sanitizeFilename(outlineFile.Filename))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	f, err := outlineFile.Open()
	if err != nil {
		jsonError(w, "failed to read outline", http.StatusBadRequest)
		return
	}
	list, err := p.Parse(f, outlineFile.Filename)
	f.Close()
	if err != nil {
		jsonError(w, "parse outline: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	list = outlinefile.Resolved(list)
	if len(list) == 0 {
		jsonError(w, "outline has no entries with page numbers", http.StatusUnprocessableEntity)
		return
	}

	dir, err := s.tempDir("uploads")
	if err != nil {
		jsonError(w, "failed to create upload dir", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	in, err := saveUpload(doc, filepath.Join(dir, "in"), s.cfg.MaxUploadBytes)
	if err != nil {
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	out := filepath.Join(dir, filepath.Base(in))
	if err := document.ApplyOutline(r.Context(), s.engine, in, out, list); err != nil {
		jsonError(w, "apply outline: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.log.Info("outline applied", "file", filepath.Base(in), "bookmarks", len(list))
	serveFile(w, r, out)
}
