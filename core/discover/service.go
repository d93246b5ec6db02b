package discover

import (
	"context"

	"dropfm/model"
	"dropfm/repository"
)

// DefaultLimit is the sample size when the caller doesn't ask for one.
const DefaultLimit = 10

// Service returns bounded random samples of active tracks for a genre, used
// to seed shuffle playback.
type Service struct {
	tracks repository.TrackRepository
}

// NewService creates a discovery sampler.
func NewService(tracks repository.TrackRepository) *Service {
	return &Service{tracks: tracks}
}

// Discover samples up to limit active tracks of a genre. When requesterID > 0
// each summary's UserLikes reflects whether that user liked the track; the raw
// like set never leaves the store.
func (s *Service) Discover(ctx context.Context, genre string, limit int, requesterID int64) ([]model.TrackSummary, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	tracks, err := s.tracks.RandomTracksByGenre(ctx, genre, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.TrackSummary, 0, len(tracks))
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		summaries = append(summaries, t.Summary())
		ids = append(ids, t.ID)
	}

	if requesterID > 0 && len(ids) > 0 {
		liked, err := s.tracks.LikedTrackIDs(ctx, requesterID, ids)
		if err != nil {
			return nil, err
		}
		for i := range summaries {
			summaries[i].UserLikes = liked[summaries[i].ID]
		}
	}

	return summaries, nil
}
