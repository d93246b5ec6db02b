package feed

import (
	"context"
	"testing"
	"time"

	"dropfm/model"
	"dropfm/repository/repositorytest"
)

type feedFixture struct {
	tracks  *repositorytest.FakeTrackRepo
	follows *repositorytest.FakeFollowRepo
	users   *repositorytest.FakeUserRepo
	svc     *Service
}

func newFeedFixture() *feedFixture {
	f := &feedFixture{
		tracks:  repositorytest.NewFakeTrackRepo(),
		follows: repositorytest.NewFakeFollowRepo(),
		users:   repositorytest.NewFakeUserRepo(),
	}
	f.svc = NewService(f.tracks, f.follows, f.users)
	return f
}

func (f *feedFixture) addUser(t *testing.T, username string) int64 {
	t.Helper()
	id, err := f.users.CreateUser(context.Background(), &model.User{
		Username: username,
		Email:    username + "@example.com",
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return id
}

func (f *feedFixture) addActiveTrack(t *testing.T, artistID int64, id string) {
	t.Helper()
	err := f.tracks.CreateTrack(context.Background(), &model.Track{
		ID:        id,
		Title:     "track " + id,
		ArtistID:  artistID,
		Genre:     "house",
		Expirable: true,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateTrack(%s): %v", id, err)
	}
}

func TestGetUserFeedEmptyWithoutFollows(t *testing.T) {
	f := newFeedFixture()
	me := f.addUser(t, "loner")

	entries, err := f.svc.GetUserFeed(context.Background(), me)
	if err != nil {
		t.Fatalf("GetUserFeed: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("entries = %v, want empty non-nil slice", entries)
	}
}

func TestGetUserFeedOneEntryPerFollowee(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	me := f.addUser(t, "me")
	active := f.addUser(t, "active")
	silent := f.addUser(t, "silent")

	f.addActiveTrack(t, active, "drop-1")
	// An expired track must not surface in the feed.
	f.addActiveTrack(t, silent, "old-drop")
	if _, err := f.tracks.ExpireCurrentTrack(ctx, silent); err != nil {
		t.Fatalf("ExpireCurrentTrack: %v", err)
	}

	for _, followee := range []int64{active, silent} {
		if err := f.follows.CreateFollow(ctx, me, followee); err != nil {
			t.Fatalf("CreateFollow: %v", err)
		}
	}

	entries, err := f.svc.GetUserFeed(ctx, me)
	if err != nil {
		t.Fatalf("GetUserFeed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want one per followee", len(entries))
	}

	if entries[0].Followee.ID != active {
		t.Fatalf("entries out of follow order: first followee id = %d", entries[0].Followee.ID)
	}
	if entries[0].Track == nil || entries[0].Track.ID != "drop-1" {
		t.Fatalf("active followee entry track = %+v, want drop-1", entries[0].Track)
	}
	if entries[1].Followee.ID != silent {
		t.Fatalf("second followee id = %d, want %d", entries[1].Followee.ID, silent)
	}
	if entries[1].Track != nil {
		t.Fatalf("silent followee entry track = %+v, want nil", entries[1].Track)
	}
}

func TestGetUserFeedSkipsDanglingFollows(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	me := f.addUser(t, "me")
	friend := f.addUser(t, "friend")

	if err := f.follows.CreateFollow(ctx, me, friend); err != nil {
		t.Fatalf("CreateFollow: %v", err)
	}
	// Follow edge pointing at a user that no longer exists.
	if err := f.follows.CreateFollow(ctx, me, 9999); err != nil {
		t.Fatalf("CreateFollow: %v", err)
	}

	entries, err := f.svc.GetUserFeed(ctx, me)
	if err != nil {
		t.Fatalf("GetUserFeed: %v", err)
	}
	if len(entries) != 1 || entries[0].Followee.ID != friend {
		t.Fatalf("entries = %+v, want only the existing followee", entries)
	}
}

func TestGetUserFeedUsesDisplayProjection(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	me := f.addUser(t, "me")
	friendID, err := f.users.CreateUser(ctx, &model.User{
		Username:    "dj_handle",
		Email:       "dj@example.com",
		DisplayName: "DJ Proper",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := f.follows.CreateFollow(ctx, me, friendID); err != nil {
		t.Fatalf("CreateFollow: %v", err)
	}

	entries, err := f.svc.GetUserFeed(ctx, me)
	if err != nil {
		t.Fatalf("GetUserFeed: %v", err)
	}
	if len(entries) != 1 || entries[0].Followee.DisplayName != "DJ Proper" {
		t.Fatalf("entries = %+v, want display name from profile", entries)
	}
}
