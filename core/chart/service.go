package chart

import (
	"context"
	"encoding/json"
	"time"

	"dropfm/cache"
	"dropfm/logger"
	"dropfm/model"
	"dropfm/repository"
)

// DefaultLimit is the chart size when the caller doesn't ask for one.
const DefaultLimit = 10

// Service serves "top N tracks for genre X" through a TTL cache. The cache is
// write-through-on-miss and never the authority: a vote does not invalidate
// it, so chart results may lag real ratings by up to the TTL.
type Service struct {
	tracks repository.TrackRepository
	charts cache.ChartCache
	ttl    time.Duration
}

// NewService creates a chart service. A non-positive ttl falls back to the
// cache default.
func NewService(tracks repository.TrackRepository, charts cache.ChartCache, ttl time.Duration) *Service {
	return &Service{tracks: tracks, charts: charts, ttl: ttl}
}

// GetChart returns the top tracks for a genre ("all" means unfiltered),
// annotated with the requester's like state when requesterID > 0.
//
// The cached payload is requester-agnostic; the userLikes flag is applied per
// request so one cache entry serves every caller.
func (s *Service) GetChart(ctx context.Context, genre string, limit int, requesterID int64) ([]model.TrackSummary, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if summaries, ok := s.fromCache(ctx, genre, limit); ok {
		return s.annotate(ctx, summaries, requesterID)
	}

	tracks, err := s.tracks.TopTracksByGenre(ctx, genre, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.TrackSummary, 0, len(tracks))
	for _, t := range tracks {
		summaries = append(summaries, t.Summary())
	}

	// Marshal before annotating: the cache write runs off the request path, and
	// the payload must be snapshotted while the summaries still carry no
	// requester-specific flags. A cache failure only costs the next reader a
	// recompute.
	if payload, err := json.Marshal(summaries); err != nil {
		logger.Warn("Failed to marshal chart for caching",
			logger.String("genre", genre), logger.ErrorField(err))
	} else {
		go s.populate(genre, payload)
	}

	return s.annotate(ctx, summaries, requesterID)
}

func (s *Service) fromCache(ctx context.Context, genre string, limit int) ([]model.TrackSummary, bool) {
	payload, ok, err := s.charts.GetChart(ctx, genre)
	if err != nil {
		logger.Warn("Chart cache read failed, falling back to store",
			logger.String("genre", genre), logger.ErrorField(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var summaries []model.TrackSummary
	if err := json.Unmarshal(payload, &summaries); err != nil {
		logger.Warn("Discarding malformed cached chart",
			logger.String("genre", genre), logger.ErrorField(err))
		return nil, false
	}
	if len(summaries) < limit {
		// The key is genre-only, so a smaller earlier request may have cached a
		// shorter list. Recompute rather than serve a truncated chart.
		return nil, false
	}
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, true
}

func (s *Service) populate(genre string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.charts.CacheChart(ctx, payload, genre, s.ttl); err != nil {
		logger.Warn("Failed to cache chart",
			logger.String("genre", genre), logger.ErrorField(err))
	}
}

// annotate collapses the requester's like-set membership into the UserLikes
// flag. Summaries never carry the raw like list.
func (s *Service) annotate(ctx context.Context, summaries []model.TrackSummary, requesterID int64) ([]model.TrackSummary, error) {
	if requesterID <= 0 || len(summaries) == 0 {
		return summaries, nil
	}

	ids := make([]string, 0, len(summaries))
	for _, t := range summaries {
		ids = append(ids, t.ID)
	}
	liked, err := s.tracks.LikedTrackIDs(ctx, requesterID, ids)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		summaries[i].UserLikes = liked[summaries[i].ID]
	}
	return summaries, nil
}
