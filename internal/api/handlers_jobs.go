package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dgallion1/docmark/internal/bookmark"
	"github.com/dgallion1/docmark/internal/catalog"
	"github.com/dgallion1/docmark/internal/convert"
	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleMerge queues a merge of the uploaded "files" in upload order.
// Optional repeated "titles" and "levels" fields align with the files.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r, 10); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	titles := r.MultipartForm.Value["titles"]
	levels := r.MultipartForm.Value["levels"]

	addNumbers, err := formBool(r, "add_page_numbers", s.cfg.AddPageNumbers)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	dir, err := s.tempDir("jobs")
	if err != nil {
		jsonError(w, "failed to create job dir", http.StatusInternalServerError)
		return
	}

	inputs := make([]document.MergeInput, 0, len(files))
	for i, fh := range files {
		name := sanitizeFilename(fh.Filename)
		if !isPDF(name) && !convert.IsWord(name) {
			os.RemoveAll(dir)
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(name)), http.StatusBadRequest)
			return
		}
		path, err := saveUpload(fh, filepath.Join(dir, "in", strconv.Itoa(i+1)), s.cfg.MaxUploadBytes)
		if err != nil {
			os.RemoveAll(dir)
			jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		in := document.MergeInput{Path: path}
		if i < len(titles) {
			in.Title = titles[i]
		}
		if i < len(levels) && levels[i] != "" {
			n, err := strconv.Atoi(levels[i])
			if err != nil || n < 1 {
				os.RemoveAll(dir)
				jsonError(w, fmt.Sprintf("invalid level %q for %s", levels[i], name), http.StatusBadRequest)
				return
			}
			in.Level = n
		}
		inputs = append(inputs, in)
	}

	job := pipeline.NewMergeJob(dir, document.MergeOptions{
		Inputs:         inputs,
		Output:         filepath.Join(dir, "out", outputName(r.FormValue("output"), "merged.pdf")),
		AddPageNumbers: addNumbers,
	})
	s.submit(w, job)
}

// handleExtract queues an extraction. Each uploaded file pairs with a
// "select" field listing 1-based outline positions ("1,3-5"); a missing,
// empty or "all" selection takes every bookmark. mode "single" merges the
// selection into one file, the default "files" writes one file per
// bookmark.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r, 10); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	selects := r.MultipartForm.Value["select"]

	mode := r.FormValue("mode")
	if mode == "" {
		mode = "files"
	}
	if mode != "files" && mode != "single" {
		jsonError(w, fmt.Sprintf("unknown mode %q", mode), http.StatusBadRequest)
		return
	}
	pdfa, err := formBool(r, "pdfa", false)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	keepContainer, err := formBool(r, "keep_container", false)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	dir, err := s.tempDir("jobs")
	if err != nil {
		jsonError(w, "failed to create job dir", http.StatusInternalServerError)
		return
	}
	fail := func(msg string, code int) {
		os.RemoveAll(dir)
		jsonError(w, msg, code)
	}

	selections := make([]document.FileSelection, 0, len(files))
	for i, fh := range files {
		name := sanitizeFilename(fh.Filename)
		if !isPDF(name) {
			fail(fmt.Sprintf("unsupported file type: %s", filepath.Ext(name)), http.StatusBadRequest)
			return
		}
		path, err := saveUpload(fh, filepath.Join(dir, "in", strconv.Itoa(i+1)), s.cfg.MaxUploadBytes)
		if err != nil {
			fail(err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		sel := "all"
		if i < len(selects) && selects[i] != "" {
			sel = selects[i]
		}
		marks, err := s.selectBookmarks(r, path, sel, mode == "single")
		if err != nil {
			fail(fmt.Sprintf("%s: %s", name, err), http.StatusUnprocessableEntity)
			return
		}
		selections = append(selections, document.FileSelection{Path: path, Bookmarks: marks})
	}

	group, err := formBool(r, "group_by_files", document.ShouldGroup(selections))
	if err != nil {
		fail(err.Error(), http.StatusBadRequest)
		return
	}

	out := filepath.Join(dir, "out")
	dest := document.Directory(out)
	if mode == "single" {
		dest = document.SingleFile(filepath.Join(out, outputName(r.FormValue("output"), "extract.pdf")))
	}

	job := pipeline.NewExtractJob(dir, document.ExtractOptions{
		Files:              selections,
		Destination:        dest,
		PdfA:               pdfa,
		GroupByFiles:       group,
		NameTemplate:       r.FormValue("name_template"),
		DropRedundantFirst: !keepContainer,
	})
	s.submit(w, job)
}

// selectBookmarks reads the outline of path and resolves a selection
// against it.
func (s *Server) selectBookmarks(r *http.Request, path, sel string, single bool) ([]bookmark.Bookmark, error) {
	ctx := r.Context()
	count, err := s.engine.PageCount(ctx, path)
	if err != nil {
		return nil, err
	}
	roots, err := s.engine.Outline(ctx, path)
	if err != nil {
		return nil, err
	}
	c := catalog.FromSource(path, roots, count)
	if sel == "all" {
		c.SelectAll()
	} else {
		idx, err := catalog.ParseIndexes(sel, len(c.Entries))
		if err != nil {
			return nil, err
		}
		c.SelectIndexes(idx)
	}
	return c.Extractable(!single), nil
}

func (s *Server) submit(w http.ResponseWriter, job *pipeline.Job) {
	if err := s.orchestrator.Submit(job); err != nil {
		os.RemoveAll(job.Dir)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("job queued", "job_id", job.ID, "kind", job.Kind)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"kind":     job.Kind,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s/status", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleJobResult downloads an output of a completed job. With several
// outputs the "file" query parameter picks one; without it the outputs are
// listed.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if snap := job.Snapshot(); snap.Status != pipeline.StatusCompleted {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}

	outputs := job.Outputs()
	name := r.URL.Query().Get("file")
	if name == "" && len(outputs) == 1 {
		name = filepath.Base(outputs[0])
	}
	if name == "" {
		list := make([]map[string]string, len(outputs))
		for i, p := range outputs {
			base := filepath.Base(p)
			list[i] = map[string]string{
				"name": base,
				"url":  fmt.Sprintf("/api/jobs/%s/result?file=%s", jobID, base),
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"outputs": list})
		return
	}
	for _, p := range outputs {
		if filepath.Base(p) == name {
			serveFile(w, r, p)
			return
		}
	}
	jsonError(w, "output not found", http.StatusNotFound)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	active, err := s.orchestrator.CancelJob(jobID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	if !active {
		jsonError(w, "job already finished", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "cancelled": true})
}

func (s *Server) handleConvertStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "converter stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.stats.Snapshot(),
	})
}
