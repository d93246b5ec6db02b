package feed

import (
	"context"

	"dropfm/model"
	"dropfm/repository"
)

// Entry pairs a followee with their current active track. Track is nil when
// the followee has nothing active, so callers can render "no content" states.
type Entry struct {
	Followee model.DisplayInfo   `json:"followee"`
	Track    *model.TrackSummary `json:"track"`
}

// Service computes per-user feeds by fan-out-on-read: no materialized feed is
// kept, the result is always current relative to the track store.
type Service struct {
	tracks  repository.TrackRepository
	follows repository.FollowRepository
	users   repository.UserRepository
}

// NewService creates a feed aggregator.
func NewService(tracks repository.TrackRepository, follows repository.FollowRepository, users repository.UserRepository) *Service {
	return &Service{tracks: tracks, follows: follows, users: users}
}

// GetUserFeed returns one entry per followed user, in follow order.
func (s *Service) GetUserFeed(ctx context.Context, followerID int64) ([]Entry, error) {
	followeeIDs, err := s.follows.GetFollowees(ctx, followerID)
	if err != nil {
		return nil, err
	}
	if len(followeeIDs) == 0 {
		return []Entry{}, nil
	}

	users, err := s.users.GetUsersByID(ctx, followeeIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	tracks, err := s.tracks.ActiveTracksByArtists(ctx, followeeIDs)
	if err != nil {
		return nil, err
	}
	trackByArtist := make(map[int64]*model.Track, len(tracks))
	for _, t := range tracks {
		trackByArtist[t.ArtistID] = t
	}

	entries := make([]Entry, 0, len(followeeIDs))
	for _, id := range followeeIDs {
		user, ok := byID[id]
		if !ok {
			// Dangling follow edge (deleted account); skip rather than fail.
			continue
		}

		entry := Entry{Followee: user.Display()}
		if t, ok := trackByArtist[id]; ok {
			summary := t.Summary()
			entry.Track = &summary
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
