package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"dropfm/model"
	"dropfm/repository/repositorytest"
)

const defaultCover = "/img/default_cover.png"

type stubBlobStore struct {
	mu      sync.Mutex
	deleted []string
	failOn  map[string]bool
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{failOn: make(map[string]bool)}
}

func (s *stubBlobStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	return "http://blobs/" + objectName, nil
}

func (s *stubBlobStore) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[url] {
		return errors.New("object store unavailable")
	}
	s.deleted = append(s.deleted, url)
	return nil
}

func (s *stubBlobStore) deletedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.deleted...)
}

func seedTrack(t *testing.T, repo *repositorytest.FakeTrackRepo, id string, artistID int64, createdAt time.Time, expired bool) {
	t.Helper()
	err := repo.CreateTrack(context.Background(), &model.Track{
		ID:        id,
		Title:     "track " + id,
		ArtistID:  artistID,
		Genre:     "house",
		FileURL:   "http://blobs/audio/" + id + ".mp3",
		CoverArt:  "http://blobs/covers/" + id + ".jpg",
		IsExpired: expired,
		Expirable: true,
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("CreateTrack(%s): %v", id, err)
	}
}

func TestRunExpireSweep(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	now := time.Now()
	seedTrack(t, repo, "old", 1, now.Add(-48*time.Hour), false)
	seedTrack(t, repo, "fresh", 2, now, false)

	s := New(repo, newStubBlobStore(), Config{Retention: 24 * time.Hour})
	cutoff := now.Add(-24 * time.Hour)

	expired, err := s.RunExpireSweep(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("RunExpireSweep: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired %d tracks, want 1", expired)
	}

	old, _ := repo.GetTrackByID(context.Background(), "old")
	if !old.IsExpired {
		t.Fatal("track past retention still active")
	}
	fresh, _ := repo.GetTrackByID(context.Background(), "fresh")
	if fresh.IsExpired {
		t.Fatal("fresh track was expired")
	}

	// Idempotent: a second run with the same cutoff transitions nothing.
	expired, err = s.RunExpireSweep(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("second RunExpireSweep: %v", err)
	}
	if expired != 0 {
		t.Fatalf("second sweep expired %d tracks, want 0", expired)
	}
}

func TestRunDeleteSweepRemovesExpiredTracksAndBlobs(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	now := time.Now()
	seedTrack(t, repo, "gone", 1, now.Add(-48*time.Hour), true)
	seedTrack(t, repo, "alive", 2, now, false)

	blobs := newStubBlobStore()
	s := New(repo, blobs, Config{})

	report := s.RunDeleteSweep(context.Background())
	if report.Deleted != 1 || report.Failed != 0 {
		t.Fatalf("report = %+v, want 1 deleted, 0 failed", report)
	}

	if track, _ := repo.GetTrackByID(context.Background(), "gone"); track != nil {
		t.Fatal("expired track record survived the delete sweep")
	}
	if track, _ := repo.GetTrackByID(context.Background(), "alive"); track == nil {
		t.Fatal("active track was removed by the delete sweep")
	}

	urls := blobs.deletedURLs()
	if len(urls) != 2 {
		t.Fatalf("deleted blobs %v, want audio and cover of the expired track", urls)
	}
}

func TestRunDeleteSweepContinuesOnFailure(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	now := time.Now().Add(-48 * time.Hour)
	seedTrack(t, repo, "bad", 1, now, true)
	seedTrack(t, repo, "good", 2, now, true)
	repo.DeleteErr["bad"] = errors.New("lock wait timeout")

	s := New(repo, newStubBlobStore(), Config{})

	report := s.RunDeleteSweep(context.Background())
	if report.Deleted != 1 || report.Failed != 1 {
		t.Fatalf("report = %+v, want the good track deleted despite the failure", report)
	}
	if track, _ := repo.GetTrackByID(context.Background(), "good"); track != nil {
		t.Fatal("good track survived although its deletion succeeded")
	}
}

func TestRunDeleteSweepBlobFailureStillCountsDeleted(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	seedTrack(t, repo, "orphan", 1, time.Now().Add(-48*time.Hour), true)

	blobs := newStubBlobStore()
	blobs.failOn["http://blobs/audio/orphan.mp3"] = true

	s := New(repo, blobs, Config{})
	report := s.RunDeleteSweep(context.Background())
	if report.Deleted != 1 || report.Failed != 0 {
		t.Fatalf("report = %+v, blob failure must not fail the item", report)
	}
	if track, _ := repo.GetTrackByID(context.Background(), "orphan"); track != nil {
		t.Fatal("track record survived despite successful store delete")
	}
}

func TestRunDeleteSweepSkipsDefaultCover(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	err := repo.CreateTrack(context.Background(), &model.Track{
		ID:        "plain",
		Title:     "plain",
		ArtistID:  1,
		FileURL:   "http://blobs/audio/plain.mp3",
		CoverArt:  defaultCover,
		IsExpired: true,
		Expirable: true,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}

	blobs := newStubBlobStore()
	s := New(repo, blobs, Config{DefaultCoverURL: defaultCover})

	report := s.RunDeleteSweep(context.Background())
	if report.Deleted != 1 {
		t.Fatalf("report = %+v, want the track deleted", report)
	}

	for _, url := range blobs.deletedURLs() {
		if url == defaultCover {
			t.Fatal("delete sweep removed the shared default cover")
		}
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	s := New(repo, newStubBlobStore(), Config{
		ExpireInterval: 10 * time.Millisecond,
		DeleteInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}
