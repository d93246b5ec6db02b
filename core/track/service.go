package track

import (
	"context"
	"errors"
	"io"
	"path"
	"time"

	"dropfm/logger"
	"dropfm/model"
	"dropfm/repository"
	"dropfm/storage"

	"github.com/google/uuid"
)

// Validation errors are reported before any mutation happens.
var (
	ErrNoFileProvided = errors.New("no track file provided")
	ErrMissingTitle   = errors.New("track title is required")
)

// ErrTrackNotFound marks operations against a track id with no record behind
// it, as opposed to idempotent no-ops.
var ErrTrackNotFound = errors.New("track not found")

// UploadRequest carries everything needed to publish a new track.
type UploadRequest struct {
	ArtistID   int64
	ArtistName string
	Title      string
	Genre      string
	Tags       string
	Explicit   bool

	// File is the track audio; required.
	File     io.Reader
	FileName string
	FileSize int64

	// Cover is optional; when nil the default cover is used.
	Cover            io.Reader
	CoverName        string
	CoverSize        int64
	CoverContentType string
	FileContentType  string
}

// VoteResult reports what a like/unlike actually did.
type VoteResult struct {
	Applied bool `json:"applied"`
	Rating  int  `json:"rating"`
}

// UpdateResult reports a metadata update outcome.
type UpdateResult struct {
	Updated       bool     `json:"updated"`
	AppliedFields []string `json:"appliedFields,omitempty"`
}

// Service owns the track lifecycle: one active track per artist, idempotent
// votes, ownership-guarded edits and deletes.
type Service struct {
	tracks          repository.TrackRepository
	blobs           storage.BlobStore
	uploadLocks     *keyedMutex
	defaultCoverURL string
}

// NewService creates a track lifecycle service.
func NewService(tracks repository.TrackRepository, blobs storage.BlobStore, defaultCoverURL string) *Service {
	return &Service{
		tracks:          tracks,
		blobs:           blobs,
		uploadLocks:     newKeyedMutex(),
		defaultCoverURL: defaultCoverURL,
	}
}

// Upload expires the artist's current active track and creates the new one.
// The two steps run under a per-artist lock so at most one non-expired track
// per artist can exist even under concurrent uploads.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*model.Track, error) {
	if req.File == nil {
		return nil, ErrNoFileProvided
	}
	if req.Title == "" {
		return nil, ErrMissingTitle
	}

	trackID := uuid.NewString()

	fileURL, err := s.blobs.Upload(ctx, blobName("audio", trackID, req.FileName), req.File, req.FileSize, req.FileContentType)
	if err != nil {
		return nil, err
	}

	coverURL := s.defaultCoverURL
	if req.Cover != nil {
		coverURL, err = s.blobs.Upload(ctx, blobName("covers", trackID, req.CoverName), req.Cover, req.CoverSize, req.CoverContentType)
		if err != nil {
			return nil, err
		}
	}

	s.uploadLocks.Lock(req.ArtistID)
	defer s.uploadLocks.Unlock(req.ArtistID)

	if _, err := s.tracks.ExpireCurrentTrack(ctx, req.ArtistID); err != nil {
		return nil, err
	}

	track := &model.Track{
		ID:        trackID,
		Title:     req.Title,
		Artist:    req.ArtistName,
		ArtistID:  req.ArtistID,
		CoverArt:  coverURL,
		Genre:     req.Genre,
		Tags:      req.Tags,
		FileURL:   fileURL,
		Explicit:  req.Explicit,
		Expirable: true,
		CreatedAt: time.Now(),
	}
	if err := s.tracks.CreateTrack(ctx, track); err != nil {
		return nil, err
	}

	logger.Info("Track uploaded",
		logger.String("trackId", track.ID),
		logger.Int64("artistId", track.ArtistID),
		logger.String("genre", track.Genre))
	return track, nil
}

// Vote applies a like (remove=false) or unlike (remove=true). A repeated vote
// in the same direction is a no-op, reported with Applied=false and the
// unchanged rating; a missing track is ErrTrackNotFound.
func (s *Service) Vote(ctx context.Context, trackID string, userID int64, remove bool) (VoteResult, error) {
	var found, applied bool
	var rating int
	var err error

	if remove {
		found, applied, rating, err = s.tracks.RemoveLike(ctx, trackID, userID)
	} else {
		found, applied, rating, err = s.tracks.CreateLike(ctx, trackID, userID)
	}
	if err != nil {
		return VoteResult{}, err
	}
	if !found {
		return VoteResult{}, ErrTrackNotFound
	}
	return VoteResult{Applied: applied, Rating: rating}, nil
}

// CurrentTrack returns the user's active track, or nil when they have none.
func (s *Service) CurrentTrack(ctx context.Context, artistID int64) (*model.Track, error) {
	return s.tracks.GetCurrentTrackByArtist(ctx, artistID)
}

// UpdateMetadata applies a partial update to a track owned by artistID.
// Updated=false covers both "not found" and "not owned"; the caller maps it to
// a denial response.
func (s *Service) UpdateMetadata(ctx context.Context, trackID string, artistID int64, upd model.TrackUpdate) (UpdateResult, error) {
	if upd.Empty() {
		return UpdateResult{Updated: false}, nil
	}

	updated, err := s.tracks.UpdateTrackByID(ctx, trackID, artistID, upd)
	if err != nil {
		return UpdateResult{}, err
	}
	if !updated {
		return UpdateResult{Updated: false}, nil
	}
	return UpdateResult{Updated: true, AppliedFields: upd.AppliedFields()}, nil
}

// Delete removes a track owned by artistID and schedules best-effort blob
// cleanup. Returns false when no owned track matched.
func (s *Service) Delete(ctx context.Context, trackID string, artistID int64) (bool, error) {
	track, err := s.tracks.DeleteTrackByID(ctx, trackID, artistID)
	if err != nil {
		return false, err
	}
	if track == nil {
		return false, nil
	}

	// Blob cleanup must never block or fail the request; an orphaned file is
	// the worst outcome.
	go s.ReleaseBlobs(context.Background(), track)

	return true, nil
}

// ReleaseBlobs deletes the track's file and, when not the default, its cover.
// Failures are logged, not returned; callers treat this as best-effort.
func (s *Service) ReleaseBlobs(ctx context.Context, track *model.Track) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.blobs.Delete(ctx, track.FileURL); err != nil {
		logger.Warn("Failed to delete track file blob",
			logger.String("trackId", track.ID),
			logger.String("url", track.FileURL),
			logger.ErrorField(err))
	}
	if track.CoverArt != "" && track.CoverArt != s.defaultCoverURL {
		if err := s.blobs.Delete(ctx, track.CoverArt); err != nil {
			logger.Warn("Failed to delete cover art blob",
				logger.String("trackId", track.ID),
				logger.String("url", track.CoverArt),
				logger.ErrorField(err))
		}
	}
}

func blobName(prefix, trackID, fileName string) string {
	ext := path.Ext(fileName)
	return prefix + "/" + trackID + ext
}
