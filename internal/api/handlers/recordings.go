package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ARedaUni/teloshousemeet/internal/api"
	"github.com/ARedaUni/teloshousemeet/internal/db"
	"github.com/ARedaUni/teloshousemeet/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// recordingStore reads recordings for display
type recordingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Recording, error)
	List(ctx context.Context, limit, offset int) ([]repository.Recording, error)
}

// pipelineRunner drives recording discovery and processing
type pipelineRunner interface {
	DiscoverRecordings(ctx context.Context) (int, error)
	ProcessPending(ctx context.Context, limit int) error
}

// fileDownloader streams file content out of Drive
type fileDownloader interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// RecordingsHandler handles recording-related HTTP requests
type RecordingsHandler struct {
	recordings recordingStore
	pipeline   pipelineRunner
	drive      fileDownloader
}

// NewRecordingsHandler creates a new recordings handler
func NewRecordingsHandler(recordings recordingStore, pipeline pipelineRunner, drive fileDownloader) *RecordingsHandler {
	return &RecordingsHandler{recordings: recordings, pipeline: pipeline, drive: drive}
}

// DiscoverResponse reports how many new recordings were registered
type DiscoverResponse struct {
	Discovered int `json:"discovered"`
}

// ListRecordings returns recordings ordered by newest first
func (h *RecordingsHandler) ListRecordings(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	recordings, err := h.recordings.List(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to list recordings", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, recordings, &api.Meta{
		Pagination: &api.PaginationMeta{Page: page, Limit: limit},
	})
}

// GetRecording returns a single recording by ID
func (h *RecordingsHandler) GetRecording(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.SendError(c, http.StatusBadRequest, api.ErrCodeValidation, "Invalid recording ID", err.Error())
		return
	}

	recording, err := h.recordings.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			api.SendNotFound(c, "Recording")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to get recording", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, recording, nil)
}

// DownloadRecording streams a recording's audio content from Drive
func (h *RecordingsHandler) DownloadRecording(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.SendError(c, http.StatusBadRequest, api.ErrCodeValidation, "Invalid recording ID", err.Error())
		return
	}

	recording, err := h.recordings.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			api.SendNotFound(c, "Recording")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to get recording", err.Error())
		return
	}

	body, err := h.drive.Download(c.Request.Context(), recording.DriveFileID)
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to download recording", err.Error())
		return
	}
	defer body.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", recording.FileName),
	}
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", body, extraHeaders)
}

// DiscoverRecordings scans the configured Drive folder for new audio files
func (h *RecordingsHandler) DiscoverRecordings(c *gin.Context) {
	discovered, err := h.pipeline.DiscoverRecordings(c.Request.Context())
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to discover recordings", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, DiscoverResponse{Discovered: discovered}, nil)
}

// ProcessRecordings runs the pipeline for pending recordings
func (h *RecordingsHandler) ProcessRecordings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if limit < 1 || limit > maxPageSize {
		limit = 5
	}

	if err := h.pipeline.ProcessPending(c.Request.Context(), limit); err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to process recordings", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, gin.H{"status": "processed"}, nil)
}
