package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docatlas/internal/extraction"
	"github.com/dgallion1/docatlas/internal/storage"
	"github.com/google/uuid"
)

const defaultListLimit = 100

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.receiveUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"file_id":    rec.FileID,
		"filename":   rec.FileName,
		"size_bytes": rec.SizeBytes,
		"file_hash":  rec.FileHash,
	})
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recs, err := s.orchestrator.Registry().List(r.Context(), limit)
	if err != nil {
		s.log.Error("list uploads failed", "error", err)
		jsonError(w, "failed to list uploads", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []storage.FileRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": recs})
}

// receiveUpload reads the multipart "file" field, stores it and registers
// it. On failure the response has already been written.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (storage.FileRecord, bool) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return storage.FileRecord{}, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return storage.FileRecord{}, false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if !extraction.IsPDF(contentType, filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return storage.FileRecord{}, false
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "application/pdf"
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return storage.FileRecord{}, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return storage.FileRecord{}, false
	}

	fileID := uuid.NewString()
	rec := storage.FileRecord{
		FileID:      fileID,
		FileName:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		FileHash:    extraction.FileHash(data),
		StoredPath:  storage.UploadPath(fileID, filename),
	}

	files := s.orchestrator.Files()
	if err := files.Save(rec.StoredPath, data); err != nil {
		s.log.Error("save upload failed", "file_id", fileID, "error", err)
		jsonError(w, "failed to store file", http.StatusInternalServerError)
		return storage.FileRecord{}, false
	}
	if err := s.orchestrator.Registry().Create(r.Context(), rec); err != nil {
		s.log.Error("register upload failed", "file_id", fileID, "error", err)
		files.Delete(rec.StoredPath)
		jsonError(w, "failed to register file", http.StatusInternalServerError)
		return storage.FileRecord{}, false
	}

	s.log.Info("upload stored", "file_id", fileID, "filename", filename, "size_bytes", rec.SizeBytes)
	return rec, true
}

func sanitizeFilename(name string) string {
	// Browsers on Windows may send the full client path.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
