// Package repositorytest provides in-memory repository fakes for tests.
package repositorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"dropfm/model"
)

// FakeTrackRepo is an in-memory TrackRepository. It mirrors the store's
// conditional-mutation semantics: votes are set-membership writes and
// rating always equals the like count.
type FakeTrackRepo struct {
	mu     sync.Mutex
	order  []string
	tracks map[string]*model.Track
	likes  map[string]map[int64]bool

	// DeleteErr, when set for a track id, makes DeleteTrackByID fail.
	DeleteErr map[string]error
}

// NewFakeTrackRepo creates an empty fake.
func NewFakeTrackRepo() *FakeTrackRepo {
	return &FakeTrackRepo{
		tracks:    make(map[string]*model.Track),
		likes:     make(map[string]map[int64]bool),
		DeleteErr: make(map[string]error),
	}
}

func copyTrack(t *model.Track) *model.Track {
	c := *t
	return &c
}

func (f *FakeTrackRepo) CreateTrack(ctx context.Context, track *model.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now()
	}
	f.tracks[track.ID] = copyTrack(track)
	f.likes[track.ID] = make(map[int64]bool)
	f.order = append(f.order, track.ID)
	return nil
}

func (f *FakeTrackRepo) GetTrackByID(ctx context.Context, id string) (*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracks[id]
	if !ok {
		return nil, nil
	}
	return copyTrack(t), nil
}

func (f *FakeTrackRepo) GetCurrentTrackByArtist(ctx context.Context, artistID int64) (*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		t := f.tracks[id]
		if t != nil && t.ArtistID == artistID && !t.IsExpired {
			return copyTrack(t), nil
		}
	}
	return nil, nil
}

func (f *FakeTrackRepo) GetAllTracksByArtist(ctx context.Context, artistID int64) ([]*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Track{}
	for _, id := range f.order {
		t := f.tracks[id]
		if t != nil && t.ArtistID == artistID {
			out = append(out, copyTrack(t))
		}
	}
	return out, nil
}

func (f *FakeTrackRepo) ExpireCurrentTrack(ctx context.Context, artistID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	expired := false
	for _, t := range f.tracks {
		if t.ArtistID == artistID && !t.IsExpired && t.Expirable {
			t.IsExpired = true
			expired = true
		}
	}
	return expired, nil
}

func (f *FakeTrackRepo) CreateLike(ctx context.Context, trackID string, userID int64) (bool, bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracks[trackID]
	if !ok {
		return false, false, 0, nil
	}
	if f.likes[trackID][userID] {
		return true, false, t.Rating, nil
	}
	f.likes[trackID][userID] = true
	t.Rating++
	return true, true, t.Rating, nil
}

func (f *FakeTrackRepo) RemoveLike(ctx context.Context, trackID string, userID int64) (bool, bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracks[trackID]
	if !ok {
		return false, false, 0, nil
	}
	if !f.likes[trackID][userID] {
		return true, false, t.Rating, nil
	}
	delete(f.likes[trackID], userID)
	t.Rating--
	return true, true, t.Rating, nil
}

func (f *FakeTrackRepo) LikedTrackIDs(ctx context.Context, userID int64, trackIDs []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	liked := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		if f.likes[id][userID] {
			liked[id] = true
		}
	}
	return liked, nil
}

func (f *FakeTrackRepo) UpdateTrackByID(ctx context.Context, trackID string, artistID int64, upd model.TrackUpdate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracks[trackID]
	if !ok || t.ArtistID != artistID || upd.Empty() {
		return false, nil
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Genre != nil {
		t.Genre = *upd.Genre
	}
	if upd.Tags != nil {
		t.Tags = *upd.Tags
	}
	if upd.Explicit != nil {
		t.Explicit = *upd.Explicit
	}
	if upd.CoverArt != nil {
		t.CoverArt = *upd.CoverArt
	}
	return true, nil
}

func (f *FakeTrackRepo) DeleteTrackByID(ctx context.Context, trackID string, artistID int64) (*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.DeleteErr[trackID]; ok {
		return nil, err
	}
	t, ok := f.tracks[trackID]
	if !ok || t.ArtistID != artistID {
		return nil, nil
	}
	delete(f.tracks, trackID)
	delete(f.likes, trackID)
	for i, id := range f.order {
		if id == trackID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return copyTrack(t), nil
}

func (f *FakeTrackRepo) TopTracksByGenre(ctx context.Context, genre string, limit int) ([]*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Track{}
	for _, id := range f.order {
		t := f.tracks[id]
		if t == nil || t.IsExpired {
			continue
		}
		if genre != "all" && t.Genre != genre {
			continue
		}
		out = append(out, copyTrack(t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeTrackRepo) RandomTracksByGenre(ctx context.Context, genre string, limit int) ([]*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Track{}
	for _, id := range f.order {
		t := f.tracks[id]
		if t == nil || t.IsExpired || t.Genre != genre {
			continue
		}
		out = append(out, copyTrack(t))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *FakeTrackRepo) ActiveTracksByArtists(ctx context.Context, artistIDs []int64) ([]*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[int64]bool, len(artistIDs))
	for _, id := range artistIDs {
		want[id] = true
	}
	out := []*model.Track{}
	for _, id := range f.order {
		t := f.tracks[id]
		if t != nil && !t.IsExpired && want[t.ArtistID] {
			out = append(out, copyTrack(t))
		}
	}
	return out, nil
}

func (f *FakeTrackRepo) ExpireTracksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tracks {
		if !t.IsExpired && t.Expirable && !t.CreatedAt.After(cutoff) {
			t.IsExpired = true
			n++
		}
	}
	return n, nil
}

func (f *FakeTrackRepo) FindExpiredTracks(ctx context.Context) ([]*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Track{}
	for _, id := range f.order {
		t := f.tracks[id]
		if t != nil && t.IsExpired {
			out = append(out, copyTrack(t))
		}
	}
	return out, nil
}

// FakeFollowRepo is an in-memory FollowRepository.
type FakeFollowRepo struct {
	mu    sync.Mutex
	edges map[int64][]int64
}

// NewFakeFollowRepo creates an empty fake.
func NewFakeFollowRepo() *FakeFollowRepo {
	return &FakeFollowRepo{edges: make(map[int64][]int64)}
}

func (f *FakeFollowRepo) GetFollowees(ctx context.Context, followerID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64{}, f.edges[followerID]...), nil
}

func (f *FakeFollowRepo) CreateFollow(ctx context.Context, followerID, followeeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.edges[followerID] {
		if id == followeeID {
			return nil
		}
	}
	f.edges[followerID] = append(f.edges[followerID], followeeID)
	return nil
}

func (f *FakeFollowRepo) RemoveFollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range f.edges[followerID] {
		if id == followeeID {
			f.edges[followerID] = append(f.edges[followerID][:i], f.edges[followerID][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeFollowRepo) FollowExists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.edges[followerID] {
		if id == followeeID {
			return true, nil
		}
	}
	return false, nil
}

// FakeUserRepo is an in-memory UserRepository.
type FakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

// NewFakeUserRepo creates an empty fake.
func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{users: make(map[int64]*model.User)}
}

func (f *FakeUserRepo) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	c := *user
	f.users[user.ID] = &c
	return user.ID, nil
}

func (f *FakeUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (f *FakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (f *FakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (f *FakeUserRepo) GetUsersByID(ctx context.Context, ids []int64) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}
