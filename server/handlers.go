package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"MeetScribe/config"
	"MeetScribe/core/meeting"
	"MeetScribe/logger"
	"MeetScribe/repository"

	"github.com/gorilla/mux"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	lifecycle *meeting.Lifecycle
	userRepo  repository.UserRepository
	cfg       *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(lifecycle *meeting.Lifecycle, userRepo repository.UserRepository, cfg *config.Config) *APIHandler {
	return &APIHandler{
		lifecycle: lifecycle,
		userRepo:  userRepo,
		cfg:       cfg,
	}
}

// writeJSON serializes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("[API] 序列化响应失败", logger.ErrorField(err))
	}
}

// writeError sends a JSON error body {"error": ..., "kind": ...}.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"kind":  kind,
	})
}

// writeLifecycleError maps lifecycle sentinel errors to HTTP statuses.
func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, meeting.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Meeting not found")
	case errors.Is(err, meeting.ErrInvalidAudio):
		writeError(w, http.StatusBadRequest, "invalid_input", "Invalid or unreadable audio file")
	case errors.Is(err, meeting.ErrTranscriptMissing):
		writeError(w, http.StatusNotFound, "transcript_missing", "Transcript not found, transcribe first")
	case errors.Is(err, meeting.ErrConflictingTransition):
		writeError(w, http.StatusConflict, "conflict", "Meeting is being processed by another request")
	case errors.Is(err, meeting.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "Access to this object is forbidden")
	case errors.Is(err, meeting.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, "invalid_key", "Invalid storage key")
	case errors.Is(err, meeting.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_failure", "AI service request failed")
	default:
		logger.Error("[API] 内部错误", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// UploadMeetingHandler handles meeting audio uploads.
// Expected multipart form field:
// - file: the audio file (MP3, WAV, M4A, ...)
func (h *APIHandler) UploadMeetingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		writeError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("Failed to parse multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "Missing 'file' in form")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "Failed to read uploaded file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	m, err := h.lifecycle.CreateMeeting(r.Context(), userID, header.Filename, data, contentType)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// ListMeetingsHandler returns the caller's meetings, newest first.
func (h *APIHandler) ListMeetingsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	meetings, err := h.lifecycle.ListMeetings(r.Context(), userID)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"meetings": meetings})
}

// GetMeetingHandler returns one meeting with its transcript and summary.
func (h *APIHandler) GetMeetingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	meetingID := mux.Vars(r)["id"]
	detail, err := h.lifecycle.GetMeeting(r.Context(), userID, meetingID)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// TranscribeMeetingHandler runs transcription for a meeting synchronously.
func (h *APIHandler) TranscribeMeetingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	meetingID := mux.Vars(r)["id"]
	transcript, err := h.lifecycle.Transcribe(r.Context(), userID, meetingID)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transcript)
}

// SummarizeMeetingHandler runs summarization for a meeting synchronously.
func (h *APIHandler) SummarizeMeetingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	meetingID := mux.Vars(r)["id"]
	summary, err := h.lifecycle.Summarize(r.Context(), userID, meetingID)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// DeleteMeetingHandler removes a meeting, its artifacts and its audio.
func (h *APIHandler) DeleteMeetingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	meetingID := mux.Vars(r)["id"]
	if err := h.lifecycle.Delete(r.Context(), userID, meetingID); err != nil {
		writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ExportMeetingHandler serves a meeting artifact as a plain-text download.
// Query parameter `artifact` selects transcript (default) or summary.
func (h *APIHandler) ExportMeetingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	meetingID := mux.Vars(r)["id"]
	detail, err := h.lifecycle.GetMeeting(r.Context(), userID, meetingID)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	artifact := r.URL.Query().Get("artifact")
	if artifact == "" {
		artifact = "transcript"
	}

	var body, filename string
	switch artifact {
	case "transcript":
		if detail.Transcript == nil {
			writeError(w, http.StatusNotFound, "not_found", "Transcript not found")
			return
		}
		body = detail.Transcript.Text
		filename = fmt.Sprintf("meeting-%s-transcript.txt", meetingID)
	case "summary":
		if detail.Summary == nil {
			writeError(w, http.StatusNotFound, "not_found", "Summary not found")
			return
		}
		body = "Summary:\n" + detail.Summary.SummaryText
		if detail.Summary.ActionItems != "" {
			body += "\n\nAction Items:\n" + detail.Summary.ActionItems
		}
		filename = fmt.Sprintf("meeting-%s-summary.txt", meetingID)
	default:
		writeError(w, http.StatusBadRequest, "invalid_input", "artifact must be transcript or summary")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, body); err != nil {
		logger.Error("[Export] 写出导出内容失败", logger.ErrorField(err))
	}
}

// SignedURLHandler issues a presigned download URL for an audio locator
// owned by the caller. The locator arrives as JSON `{"key": ...}` and may
// be a bare key or a full URL.
func (h *APIHandler) SignedURLHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
		return
	}

	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "Invalid request body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "invalid_key", "Missing 'key' in request body")
		return
	}

	signed, err := h.lifecycle.SignedURL(r.Context(), userID, req.Key)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": signed})
}
