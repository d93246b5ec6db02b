package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dropfm/db"
	"dropfm/model"
)

// TrackRepository defines the interface for track data operations. Not-found
// and ownership mismatches are reported as nil results or false flags, never as
// errors; only storage failures are errors.
type TrackRepository interface {
	CreateTrack(ctx context.Context, track *model.Track) error
	GetTrackByID(ctx context.Context, id string) (*model.Track, error)
	GetCurrentTrackByArtist(ctx context.Context, artistID int64) (*model.Track, error)
	GetAllTracksByArtist(ctx context.Context, artistID int64) ([]*model.Track, error)

	// ExpireCurrentTrack marks the artist's active track expired. Returns false
	// when the artist has no active expirable track; re-running is a no-op.
	ExpireCurrentTrack(ctx context.Context, artistID int64) (bool, error)

	// CreateLike adds userID to the track's like set and bumps the rating, both
	// in one transaction. found is false when the track doesn't exist; applied
	// is false when the user had already liked it. rating is the value after
	// the call either way.
	CreateLike(ctx context.Context, trackID string, userID int64) (found, applied bool, rating int, err error)
	// RemoveLike is the symmetric unlike.
	RemoveLike(ctx context.Context, trackID string, userID int64) (found, applied bool, rating int, err error)
	// LikedTrackIDs reports which of the given tracks the user has liked.
	LikedTrackIDs(ctx context.Context, userID int64, trackIDs []string) (map[string]bool, error)

	// UpdateTrackByID applies a partial metadata update to a track owned by
	// artistID. Returns false when no owned track matched.
	UpdateTrackByID(ctx context.Context, trackID string, artistID int64, upd model.TrackUpdate) (bool, error)
	// DeleteTrackByID removes a track owned by artistID and returns the deleted
	// record, or nil when no owned track matched.
	DeleteTrackByID(ctx context.Context, trackID string, artistID int64) (*model.Track, error)

	TopTracksByGenre(ctx context.Context, genre string, limit int) ([]*model.Track, error)
	RandomTracksByGenre(ctx context.Context, genre string, limit int) ([]*model.Track, error)
	ActiveTracksByArtists(ctx context.Context, artistIDs []int64) ([]*model.Track, error)

	// ExpireTracksBefore marks every active expirable track created at or
	// before the cutoff as expired and returns how many it transitioned.
	ExpireTracksBefore(ctx context.Context, cutoff time.Time) (int64, error)
	FindExpiredTracks(ctx context.Context) ([]*model.Track, error)
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

// NewMySQLTrackRepositoryWithDB creates a repository on an explicit handle.
func NewMySQLTrackRepositoryWithDB(handle *sql.DB) TrackRepository {
	return &mysqlTrackRepository{DB: handle}
}

const trackColumns = `id, title, artist, artist_id, cover_art, genre, tags, file_url, rating, explicit, is_expired, expirable, created_at`

func scanTrack(row interface{ Scan(...interface{}) error }) (*model.Track, error) {
	track := &model.Track{}
	err := row.Scan(&track.ID, &track.Title, &track.Artist, &track.ArtistID, &track.CoverArt,
		&track.Genre, &track.Tags, &track.FileURL, &track.Rating, &track.Explicit,
		&track.IsExpired, &track.Expirable, &track.CreatedAt)
	if err != nil {
		return nil, err
	}
	return track, nil
}

// CreateTrack inserts a new track record.
func (r *mysqlTrackRepository) CreateTrack(ctx context.Context, track *model.Track) error {
	query := `INSERT INTO tracks (id, title, artist, artist_id, cover_art, genre, tags, file_url, rating, explicit, is_expired, expirable, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now()
	}
	_, err := r.DB.ExecContext(ctx, query, track.ID, track.Title, track.Artist, track.ArtistID,
		track.CoverArt, track.Genre, track.Tags, track.FileURL, track.Rating, track.Explicit,
		track.IsExpired, track.Expirable, track.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute CreateTrack: %w", err)
	}
	return nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(ctx context.Context, id string) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	track, err := scanTrack(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return track, nil
}

// GetCurrentTrackByArtist retrieves the artist's non-expired track, if any.
func (r *mysqlTrackRepository) GetCurrentTrackByArtist(ctx context.Context, artistID int64) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE artist_id = ? AND is_expired = FALSE LIMIT 1`
	track, err := scanTrack(r.DB.QueryRowContext(ctx, query, artistID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan current track for artist %d: %w", artistID, err)
	}
	return track, nil
}

// GetAllTracksByArtist retrieves every track record of an artist, newest first.
func (r *mysqlTrackRepository) GetAllTracksByArtist(ctx context.Context, artistID int64) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE artist_id = ? ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for artist %d: %w", artistID, err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

// ExpireCurrentTrack flips is_expired on the artist's active track. The guard
// on expirable keeps pinned demo content alive.
func (r *mysqlTrackRepository) ExpireCurrentTrack(ctx context.Context, artistID int64) (bool, error) {
	query := `UPDATE tracks SET is_expired = TRUE WHERE artist_id = ? AND is_expired = FALSE AND expirable = TRUE`
	res, err := r.DB.ExecContext(ctx, query, artistID)
	if err != nil {
		return false, fmt.Errorf("failed to expire current track for artist %d: %w", artistID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected in ExpireCurrentTrack: %w", err)
	}
	return affected > 0, nil
}

// CreateLike adds a like only if one doesn't exist, and updates the rating.
// The row lock on the track serializes concurrent votes; the composite primary
// key on track_likes makes the insert a conditional set-membership write, so a
// duplicate like affects zero rows and the rating is left alone.
func (r *mysqlTrackRepository) CreateLike(ctx context.Context, trackID string, userID int64) (bool, bool, int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, false, 0, fmt.Errorf("failed to begin tx for CreateLike: %w", err)
	}
	defer tx.Rollback()

	var rating int
	err = tx.QueryRowContext(ctx, `SELECT rating FROM tracks WHERE id = ? FOR UPDATE`, trackID).Scan(&rating)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, false, 0, nil
		}
		return false, false, 0, fmt.Errorf("failed to lock track %s for like: %w", trackID, err)
	}

	res, err := tx.ExecContext(ctx, `INSERT IGNORE INTO track_likes (track_id, user_id) VALUES (?, ?)`, trackID, userID)
	if err != nil {
		return false, false, 0, fmt.Errorf("failed to insert like for track %s: %w", trackID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, false, 0, fmt.Errorf("failed to read rows affected in CreateLike: %w", err)
	}

	if affected == 0 {
		// Already liked; idempotent no-op.
		if err := tx.Commit(); err != nil {
			return false, false, 0, fmt.Errorf("failed to commit CreateLike no-op: %w", err)
		}
		return true, false, rating, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tracks SET rating = rating + 1 WHERE id = ?`, trackID); err != nil {
		return false, false, 0, fmt.Errorf("failed to increment rating for track %s: %w", trackID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, false, 0, fmt.Errorf("failed to commit CreateLike: %w", err)
	}
	return true, true, rating + 1, nil
}

// RemoveLike removes a user's like and updates the rating, only if the like
// already exists.
func (r *mysqlTrackRepository) RemoveLike(ctx context.Context, trackID string, userID int64) (bool, bool, int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, false, 0, fmt.Errorf("failed to begin tx for RemoveLike: %w", err)
	}
	defer tx.Rollback()

	var rating int
	err = tx.QueryRowContext(ctx, `SELECT rating FROM tracks WHERE id = ? FOR UPDATE`, trackID).Scan(&rating)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, false, 0, nil
		}
		return false, false, 0, fmt.Errorf("failed to lock track %s for unlike: %w", trackID, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM track_likes WHERE track_id = ? AND user_id = ?`, trackID, userID)
	if err != nil {
		return false, false, 0, fmt.Errorf("failed to delete like for track %s: %w", trackID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, false, 0, fmt.Errorf("failed to read rows affected in RemoveLike: %w", err)
	}

	if affected == 0 {
		if err := tx.Commit(); err != nil {
			return false, false, 0, fmt.Errorf("failed to commit RemoveLike no-op: %w", err)
		}
		return true, false, rating, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tracks SET rating = rating - 1 WHERE id = ?`, trackID); err != nil {
		return false, false, 0, fmt.Errorf("failed to decrement rating for track %s: %w", trackID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, false, 0, fmt.Errorf("failed to commit RemoveLike: %w", err)
	}
	return true, true, rating - 1, nil
}

// LikedTrackIDs reports like membership for the user across the given tracks
// without exposing anyone else's likes.
func (r *mysqlTrackRepository) LikedTrackIDs(ctx context.Context, userID int64, trackIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(trackIDs))
	if len(trackIDs) == 0 {
		return liked, nil
	}

	placeholders := strings.Repeat("?,", len(trackIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`SELECT track_id FROM track_likes WHERE user_id = ? AND track_id IN (%s)`, placeholders)

	args := make([]interface{}, 0, len(trackIDs)+1)
	args = append(args, userID)
	for _, id := range trackIDs {
		args = append(args, id)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query likes for user %d: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan liked track id: %w", err)
		}
		liked[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in LikedTrackIDs: %w", err)
	}
	return liked, nil
}

// UpdateTrackByID applies the non-nil fields of upd to a track owned by
// artistID, field by field.
func (r *mysqlTrackRepository) UpdateTrackByID(ctx context.Context, trackID string, artistID int64, upd model.TrackUpdate) (bool, error) {
	if upd.Empty() {
		return false, nil
	}

	var sets []string
	var args []interface{}
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Genre != nil {
		sets = append(sets, "genre = ?")
		args = append(args, *upd.Genre)
	}
	if upd.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, *upd.Tags)
	}
	if upd.Explicit != nil {
		sets = append(sets, "explicit = ?")
		args = append(args, *upd.Explicit)
	}
	if upd.CoverArt != nil {
		sets = append(sets, "cover_art = ?")
		args = append(args, *upd.CoverArt)
	}

	query := fmt.Sprintf(`UPDATE tracks SET %s WHERE id = ? AND artist_id = ?`, strings.Join(sets, ", "))
	args = append(args, trackID, artistID)

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to execute UpdateTrackByID for track %s: %w", trackID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected in UpdateTrackByID: %w", err)
	}
	return affected > 0, nil
}

// DeleteTrackByID removes a track owned by artistID together with its likes
// and returns the deleted record so the caller can release its blobs.
func (r *mysqlTrackRepository) DeleteTrackByID(ctx context.Context, trackID string, artistID int64) (*model.Track, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx for DeleteTrackByID: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ? AND artist_id = ? FOR UPDATE`
	track, err := scanTrack(tx.QueryRowContext(ctx, query, trackID, artistID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Nothing owned to delete
		}
		return nil, fmt.Errorf("failed to scan track %s for delete: %w", trackID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM track_likes WHERE track_id = ?`, trackID); err != nil {
		return nil, fmt.Errorf("failed to delete likes for track %s: %w", trackID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, trackID); err != nil {
		return nil, fmt.Errorf("failed to delete track %s: %w", trackID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit DeleteTrackByID: %w", err)
	}
	return track, nil
}

// TopTracksByGenre returns active tracks ranked by rating. Genre "all" means
// unfiltered. Ties break most-recent-first.
func (r *mysqlTrackRepository) TopTracksByGenre(ctx context.Context, genre string, limit int) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE is_expired = FALSE`
	var args []interface{}
	if genre != "all" {
		query += ` AND genre = ?`
		args = append(args, genre)
	}
	query += ` ORDER BY rating DESC, created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top tracks for genre %s: %w", genre, err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

// RandomTracksByGenre returns a bounded random sample of active tracks.
func (r *mysqlTrackRepository) RandomTracksByGenre(ctx context.Context, genre string, limit int) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE is_expired = FALSE AND genre = ? ORDER BY RAND() LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, query, genre, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query random tracks for genre %s: %w", genre, err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

// ActiveTracksByArtists bulk-fetches the active track of each listed artist.
func (r *mysqlTrackRepository) ActiveTracksByArtists(ctx context.Context, artistIDs []int64) ([]*model.Track, error) {
	if len(artistIDs) == 0 {
		return []*model.Track{}, nil
	}

	placeholders := strings.Repeat("?,", len(artistIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`SELECT `+trackColumns+` FROM tracks WHERE artist_id IN (%s) AND is_expired = FALSE`, placeholders)

	args := make([]interface{}, 0, len(artistIDs))
	for _, id := range artistIDs {
		args = append(args, id)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tracks by artists: %w", err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

// ExpireTracksBefore bulk-expires active expirable tracks older than the
// cutoff. Idempotent: already-expired tracks never match.
func (r *mysqlTrackRepository) ExpireTracksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE tracks SET is_expired = TRUE WHERE is_expired = FALSE AND expirable = TRUE AND created_at <= ?`
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to execute ExpireTracksBefore: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected in ExpireTracksBefore: %w", err)
	}
	return affected, nil
}

// FindExpiredTracks lists every expired track awaiting the delete sweep.
func (r *mysqlTrackRepository) FindExpiredTracks(ctx context.Context) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE is_expired = TRUE`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired tracks: %w", err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

func collectTracks(rows *sql.Rows) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return tracks, nil
}
