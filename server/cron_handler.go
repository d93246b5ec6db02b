package server

import (
	"net/http"
	"time"

	"dropfm/logger"
)

// The cron endpoints expose the sweep logic to external schedulers (serverless
// cron). They answer 200 with a success flag either way so callers don't
// retry-storm; the shared secret is the only gate.

func (h *APIHandler) cronAuthorized(w http.ResponseWriter, r *http.Request) bool {
	secret := r.URL.Query().Get("secret")
	if h.cfg.CronSecret == "" || secret != h.cfg.CronSecret {
		logger.Warn("Attempted access to cron with incorrect secret",
			logger.String("remoteAddr", r.RemoteAddr))
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false})
		return false
	}
	return true
}

// CronExpireHandler triggers the expire sweep with the configured retention.
func (h *APIHandler) CronExpireHandler(w http.ResponseWriter, r *http.Request) {
	if !h.cronAuthorized(w, r) {
		return
	}

	cutoff := time.Now().Add(-h.cfg.TrackRetention)
	expired, err := h.sweeps.RunExpireSweep(r.Context(), cutoff)
	if err != nil {
		logger.Error("Scheduled job, expire tracks, failed", logger.ErrorField(err))
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false})
		return
	}

	logger.Info("Scheduled job, expire tracks, completed", logger.Int64("expired", expired))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "expired": expired})
}

// CronDeleteHandler triggers the delete sweep.
func (h *APIHandler) CronDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !h.cronAuthorized(w, r) {
		return
	}

	report := h.sweeps.RunDeleteSweep(r.Context())
	logger.Info("Scheduled job, delete expired, completed",
		logger.Int("deleted", report.Deleted),
		logger.Int("failed", report.Failed))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": report.Deleted,
		"failed":  report.Failed,
	})
}
