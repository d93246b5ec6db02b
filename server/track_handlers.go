package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"dropfm/core/track"
	"dropfm/logger"
	"dropfm/model"

	"github.com/gorilla/mux"
)

// UploadTrackHandler handles track uploads and metadata.
// Expected multipart form fields:
// - trackFile: the audio file (required)
// - coverFile: cover art image (optional)
// - title, genre, tags, explicit
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	req := track.UploadRequest{
		ArtistID: userID,
		Title:    r.FormValue("title"),
		Genre:    r.FormValue("genre"),
		Tags:     r.FormValue("tags"),
		Explicit: r.FormValue("explicit") == "true",
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to load uploader", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	req.ArtistName = user.Display().DisplayName

	trackFile, trackHeader, err := r.FormFile("trackFile")
	if err == nil {
		defer trackFile.Close()
		req.File = trackFile
		req.FileName = trackHeader.Filename
		req.FileSize = trackHeader.Size
		req.FileContentType = trackHeader.Header.Get("Content-Type")
	}

	coverFile, coverHeader, err := r.FormFile("coverFile")
	if err == nil {
		defer coverFile.Close()
		req.Cover = coverFile
		req.CoverName = coverHeader.Filename
		req.CoverSize = coverHeader.Size
		req.CoverContentType = coverHeader.Header.Get("Content-Type")
	}

	created, err := h.trackSvc.Upload(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, track.ErrNoFileProvided):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"errors":  map[string]string{"trackFile": "No track was uploaded"},
			})
		case errors.Is(err, track.ErrMissingTitle):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"errors":  map[string]string{"title": "Title is required"},
			})
		default:
			logger.Error("Track upload failed", logger.Int64("userId", userID), logger.ErrorField(err))
			http.Error(w, "Failed to upload track", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"track":   created,
	})
}

// VoteTrackHandler handles like/unlike on a track.
func (h *APIHandler) VoteTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	trackID := mux.Vars(r)["id"]

	var req struct {
		Remove bool `json:"remove"`
	}
	// An empty body means a plain like; anything else has to parse.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.trackSvc.Vote(r.Context(), trackID, userID, req.Remove)
	if err != nil {
		if errors.Is(err, track.ErrTrackNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false})
			return
		}
		logger.Error("Vote failed", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Failed to vote", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"applied": result.Applied,
		"rating":  result.Rating,
	})
}

// CurrentTrackHandler returns the caller's active track, or null.
func (h *APIHandler) CurrentTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	current, err := h.trackSvc.CurrentTrack(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to get current track", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to get current track", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"track": current})
}

// UpdateTrackHandler applies a partial metadata update to an owned track.
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	trackID := mux.Vars(r)["id"]

	var req struct {
		Title    *string `json:"title"`
		Genre    *string `json:"genre"`
		Tags     *string `json:"tags"`
		Explicit *bool   `json:"explicit"`
		CoverArt *string `json:"coverArt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	upd := model.TrackUpdate{
		Title:    req.Title,
		Genre:    req.Genre,
		Tags:     req.Tags,
		Explicit: req.Explicit,
		CoverArt: req.CoverArt,
	}

	result, err := h.trackSvc.UpdateMetadata(r.Context(), trackID, userID, upd)
	if err != nil {
		logger.Error("Track update failed", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Failed to update track", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if !result.Updated {
		// Not found or not owned; the engine reports both as "no effect".
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]interface{}{
		"success":       result.Updated,
		"appliedFields": result.AppliedFields,
	})
}

// DeleteTrackHandler deletes an owned track.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	trackID := mux.Vars(r)["id"]

	deleted, err := h.trackSvc.Delete(r.Context(), trackID, userID)
	if err != nil {
		logger.Error("Track delete failed", logger.String("trackId", trackID), logger.ErrorField(err))
		http.Error(w, "Failed to delete track", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if !deleted {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]interface{}{"success": deleted})
}

// GetChartHandler returns the top tracks for a genre ("all" = every genre).
func (h *APIHandler) GetChartHandler(w http.ResponseWriter, r *http.Request) {
	genre := mux.Vars(r)["genre"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	summaries, err := h.chartSvc.GetChart(r.Context(), genre, limit, requesterID(r))
	if err != nil {
		logger.Error("Chart query failed", logger.String("genre", genre), logger.ErrorField(err))
		http.Error(w, "Failed to get chart", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": summaries})
}

// DiscoverHandler returns a random sample of active tracks for a genre.
func (h *APIHandler) DiscoverHandler(w http.ResponseWriter, r *http.Request) {
	genre := mux.Vars(r)["genre"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	summaries, err := h.discoverSvc.Discover(r.Context(), genre, limit, requesterID(r))
	if err != nil {
		logger.Error("Discover query failed", logger.String("genre", genre), logger.ErrorField(err))
		http.Error(w, "Failed to discover tracks", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": summaries})
}

// FeedHandler returns the caller's feed: one entry per followed user.
func (h *APIHandler) FeedHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entries, err := h.feedSvc.GetUserFeed(r.Context(), userID)
	if err != nil {
		logger.Error("Feed query failed", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to get feed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": entries})
}
