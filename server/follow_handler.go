package server

import (
	"net/http"
	"strconv"

	"dropfm/logger"

	"github.com/gorilla/mux"
)

// FollowHandler creates a follow edge from the caller to the target user.
func (h *APIHandler) FollowHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	followeeID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	if followeeID == userID {
		http.Error(w, "Cannot follow yourself", http.StatusBadRequest)
		return
	}

	followee, err := h.userRepo.GetUserByID(r.Context(), followeeID)
	if err != nil {
		logger.Error("Failed to look up followee", logger.Int64("followeeId", followeeID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if followee == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := h.followRepo.CreateFollow(r.Context(), userID, followeeID); err != nil {
		logger.Error("Failed to create follow", logger.ErrorField(err))
		http.Error(w, "Failed to follow", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// UnfollowHandler removes a follow edge from the caller to the target user.
func (h *APIHandler) UnfollowHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	followeeID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	removed, err := h.followRepo.RemoveFollow(r.Context(), userID, followeeID)
	if err != nil {
		logger.Error("Failed to remove follow", logger.ErrorField(err))
		http.Error(w, "Failed to unfollow", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": removed})
}
