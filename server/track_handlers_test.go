package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dropfm/config"
	"dropfm/core/track"
	"dropfm/model"
	"dropfm/repository/repositorytest"

	"github.com/gorilla/mux"
)

func newVoteFixture(t *testing.T) (*APIHandler, *repositorytest.FakeTrackRepo) {
	t.Helper()
	repo := repositorytest.NewFakeTrackRepo()
	err := repo.CreateTrack(context.Background(), &model.Track{
		ID:        "drop-1",
		Title:     "drop-1",
		ArtistID:  1,
		Expirable: true,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}

	trackSvc := track.NewService(repo, noopBlobStore{}, "/img/default_cover.png")
	return NewAPIHandler(trackSvc, nil, nil, nil, nil, nil, nil, &config.Config{}), repo
}

func voteRequest(userID int64, trackID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/tracks/"+trackID+"/vote", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": trackID})
	ctx := context.WithValue(req.Context(), "userID", userID)
	return req.WithContext(ctx)
}

func TestVoteTrackHandlerEmptyBodyIsALike(t *testing.T) {
	h, repo := newVoteFixture(t)

	rec := httptest.NewRecorder()
	h.VoteTrackHandler(rec, voteRequest(42, "drop-1", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	liked, err := repo.LikedTrackIDs(context.Background(), 42, []string{"drop-1"})
	if err != nil {
		t.Fatalf("LikedTrackIDs: %v", err)
	}
	if !liked["drop-1"] {
		t.Fatal("empty-body vote did not register as a like")
	}
}

func TestVoteTrackHandlerRemoveBody(t *testing.T) {
	h, repo := newVoteFixture(t)
	if _, _, _, err := repo.CreateLike(context.Background(), "drop-1", 42); err != nil {
		t.Fatalf("CreateLike: %v", err)
	}

	rec := httptest.NewRecorder()
	h.VoteTrackHandler(rec, voteRequest(42, "drop-1", `{"remove":true}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	liked, _ := repo.LikedTrackIDs(context.Background(), 42, []string{"drop-1"})
	if liked["drop-1"] {
		t.Fatal("remove vote did not clear the like")
	}
}

func TestVoteTrackHandlerRejectsMalformedBody(t *testing.T) {
	h, repo := newVoteFixture(t)

	rec := httptest.NewRecorder()
	h.VoteTrackHandler(rec, voteRequest(42, "drop-1", `{"remove":`))

	// A body that fails to parse must not degrade into a plain like.
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	liked, _ := repo.LikedTrackIDs(context.Background(), 42, []string{"drop-1"})
	if liked["drop-1"] {
		t.Fatal("malformed vote body registered as a like")
	}
}

func TestVoteTrackHandlerUnknownTrack(t *testing.T) {
	h, _ := newVoteFixture(t)

	rec := httptest.NewRecorder()
	h.VoteTrackHandler(rec, voteRequest(42, "missing", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
