package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"dropfm/config"
	"dropfm/core/auth"
	"dropfm/core/chart"
	"dropfm/core/discover"
	"dropfm/core/feed"
	"dropfm/core/scheduler"
	"dropfm/core/track"
	"dropfm/repository"
)

// APIHandler handles all API requests.
type APIHandler struct {
	trackSvc    *track.Service
	chartSvc    *chart.Service
	discoverSvc *discover.Service
	feedSvc     *feed.Service
	sweeps      *scheduler.Scheduler
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	cfg         *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	trackSvc *track.Service,
	chartSvc *chart.Service,
	discoverSvc *discover.Service,
	feedSvc *feed.Service,
	sweeps *scheduler.Scheduler,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		trackSvc:    trackSvc,
		chartSvc:    chartSvc,
		discoverSvc: discoverSvc,
		feedSvc:     feedSvc,
		sweeps:      sweeps,
		userRepo:    userRepo,
		followRepo:  followRepo,
		cfg:         cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// AuthMiddleware checks for a valid JWT token and puts the user identity into
// the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value("userID").(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context.
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value("username").(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

// requesterID resolves the optional caller identity on endpoints that work
// anonymously too (charts, discovery). Returns 0 when no valid token is sent.
func requesterID(r *http.Request) int64 {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return 0
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0
	}
	claims, err := auth.ParseToken(parts[1])
	if err != nil {
		return 0
	}
	return claims.UserID
}
