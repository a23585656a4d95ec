package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dgallion1/docatlas/internal/extraction"
	"github.com/dgallion1/docatlas/internal/pipeline"
	"github.com/dgallion1/docatlas/internal/storage"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r, s.orchestrator.DefaultOptions())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := s.orchestrator.SubmitFile(r.Context(), chi.URLParam(r, "fileID"), opts)
	switch {
	case job == nil:
		s.storageError(w, err)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"file_id":  snap.FileID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/extractions/jobs/%s", snap.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	data, ok := s.storedExtraction(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	data, ok := s.storedExtraction(w, r)
	if !ok {
		return
	}
	res, err := extraction.Unmarshal(data)
	if err != nil {
		s.log.Error("stored extraction unreadable", "file_id", chi.URLParam(r, "fileID"), "error", err)
		jsonError(w, "stored extraction is unreadable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res.Document)
}

// handleUploadAndExtract stores the upload and extracts it on the request
// goroutine. Only the document is returned; sections are fetched from
// GET /api/extractions/{fileID}.
func (s *Server) handleUploadAndExtract(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r, s.orchestrator.DefaultOptions())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, ok := s.receiveUpload(w, r)
	if !ok {
		return
	}

	job := pipeline.NewJob(rec.FileID, rec.FileName, opts)
	res, err := s.orchestrator.Run(r.Context(), job)
	switch {
	case errors.Is(err, extraction.ErrUnsupportedType):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		jsonError(w, "extraction failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": res.Document})
}

// storedExtraction loads the persisted result for the fileID path
// parameter. On failure the response has already been written.
func (s *Server) storedExtraction(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	fileID := chi.URLParam(r, "fileID")
	rec, err := s.orchestrator.Registry().Get(r.Context(), fileID)
	if err != nil {
		s.storageError(w, err)
		return nil, false
	}
	if rec.ExtractedDocPath == "" {
		jsonError(w, "file has not been extracted", http.StatusNotFound)
		return nil, false
	}
	data, err := s.orchestrator.Files().Read(rec.ExtractedDocPath)
	if err != nil {
		s.storageError(w, err)
		return nil, false
	}
	return data, true
}

func (s *Server) storageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		jsonError(w, "file not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrInvalidPath):
		jsonError(w, "invalid file path", http.StatusBadRequest)
	default:
		s.log.Error("storage error", "error", err)
		jsonError(w, "storage error", http.StatusInternalServerError)
	}
}

// parseOptions overlays the apply_block_cleaning and include_keywords
// query parameters on defaults.
func parseOptions(r *http.Request, defaults extraction.Options) (extraction.Options, error) {
	opts := defaults
	q := r.URL.Query()
	for name, dst := range map[string]*bool{
		"apply_block_cleaning": &opts.ApplyBlockCleaning,
		"include_keywords":     &opts.IncludeKeywords,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return extraction.Options{}, fmt.Errorf("%s must be a boolean", name)
		}
		*dst = b
	}
	return opts, nil
}
