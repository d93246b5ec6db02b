package model

import "time"

// Track represents an uploaded track. A user has at most one track with
// IsExpired=false at any time; the lifecycle is active -> expired -> deleted.
type Track struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"` // Display name snapshot taken at upload time, not a live join
	ArtistID  int64     `json:"artistId"`
	CoverArt  string    `json:"coverArt"`
	Genre     string    `json:"genre"`
	Tags      string    `json:"tags"` // Comma-joined free-form tags
	FileURL   string    `json:"fileUrl"`
	Rating    int       `json:"rating"` // Always equals the number of likes
	Explicit  bool      `json:"explicit"`
	IsExpired bool      `json:"isExpired"`
	Expirable bool      `json:"expirable"` // false exempts the track from the expire sweep
	CreatedAt time.Time `json:"createdAt"`
}

// TrackSummary is the shape tracks cross component boundaries in. It carries no
// like list; per-requester like state is collapsed into UserLikes before the
// summary leaves the engine.
type TrackSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	ArtistID  int64  `json:"artistId"`
	CoverArt  string `json:"coverArt"`
	Genre     string `json:"genre"`
	Rating    int    `json:"rating"`
	Explicit  bool   `json:"explicit"`
	FileURL   string `json:"fileUrl"`
	UserLikes bool   `json:"userLikes"`
}

// Summary converts a track to its boundary shape.
func (t *Track) Summary() TrackSummary {
	return TrackSummary{
		ID:       t.ID,
		Title:    t.Title,
		Artist:   t.Artist,
		ArtistID: t.ArtistID,
		CoverArt: t.CoverArt,
		Genre:    t.Genre,
		Rating:   t.Rating,
		Explicit: t.Explicit,
		FileURL:  t.FileURL,
	}
}

// TrackUpdate describes a partial metadata update. Nil fields are left
// untouched; each field is applied independently.
type TrackUpdate struct {
	Title    *string
	Genre    *string
	Tags     *string
	Explicit *bool
	CoverArt *string
}

// Empty reports whether the update would change nothing.
func (u TrackUpdate) Empty() bool {
	return u.Title == nil && u.Genre == nil && u.Tags == nil && u.Explicit == nil && u.CoverArt == nil
}

// AppliedFields lists the names of the fields the update sets, for reporting
// back to the caller.
func (u TrackUpdate) AppliedFields() []string {
	var fields []string
	if u.Title != nil {
		fields = append(fields, "title")
	}
	if u.Genre != nil {
		fields = append(fields, "genre")
	}
	if u.Tags != nil {
		fields = append(fields, "tags")
	}
	if u.Explicit != nil {
		fields = append(fields, "explicit")
	}
	if u.CoverArt != nil {
		fields = append(fields, "coverArt")
	}
	return fields
}
