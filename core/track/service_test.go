package track

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"dropfm/model"
	"dropfm/repository/repositorytest"
)

const defaultCover = "/img/default_cover.png"

// blobRecorder is an in-memory BlobStore that remembers every upload and
// delete it sees.
type blobRecorder struct {
	mu      sync.Mutex
	uploads []string
	deleted []string
}

func newBlobRecorder() *blobRecorder {
	return &blobRecorder{}
}

func (f *blobRecorder) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, objectName)
	return "http://blobs/" + objectName, nil
}

func (f *blobRecorder) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

func (f *blobRecorder) deletedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.deleted...)
}

func newUploadRequest(artistID int64, title string) UploadRequest {
	return UploadRequest{
		ArtistID:   artistID,
		ArtistName: "tester",
		Title:      title,
		Genre:      "house",
		File:       strings.NewReader("audio-bytes"),
		FileName:   "drop.mp3",
		FileSize:   11,
	}
}

func TestUploadValidation(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	svc := NewService(repo, newBlobRecorder(), defaultCover)

	t.Run("missing file", func(t *testing.T) {
		req := newUploadRequest(1, "untitled")
		req.File = nil
		if _, err := svc.Upload(context.Background(), req); !errors.Is(err, ErrNoFileProvided) {
			t.Fatalf("err = %v, want ErrNoFileProvided", err)
		}
	})

	t.Run("missing title", func(t *testing.T) {
		req := newUploadRequest(1, "")
		if _, err := svc.Upload(context.Background(), req); !errors.Is(err, ErrMissingTitle) {
			t.Fatalf("err = %v, want ErrMissingTitle", err)
		}
	})

	// Validation failures must not leave records behind.
	if tracks, _ := repo.GetAllTracksByArtist(context.Background(), 1); len(tracks) != 0 {
		t.Fatalf("got %d tracks after failed uploads, want 0", len(tracks))
	}
}

func TestUploadExpiresPreviousTrack(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	svc := NewService(repo, newBlobRecorder(), defaultCover)
	ctx := context.Background()

	first, err := svc.Upload(ctx, newUploadRequest(7, "first drop"))
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := svc.Upload(ctx, newUploadRequest(7, "second drop"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}

	current, err := svc.CurrentTrack(ctx, 7)
	if err != nil {
		t.Fatalf("CurrentTrack: %v", err)
	}
	if current == nil || current.ID != second.ID {
		t.Fatalf("current track = %+v, want id %s", current, second.ID)
	}

	old, err := repo.GetTrackByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetTrackByID: %v", err)
	}
	if !old.IsExpired {
		t.Fatal("first track still active after second upload")
	}
}

func TestUploadUsesDefaultCoverWhenNoneProvided(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	svc := NewService(repo, newBlobRecorder(), defaultCover)

	track, err := svc.Upload(context.Background(), newUploadRequest(3, "no cover"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if track.CoverArt != defaultCover {
		t.Fatalf("cover = %q, want default %q", track.CoverArt, defaultCover)
	}
	if !track.Expirable {
		t.Fatal("uploaded track should be expirable")
	}
}

func TestVoteIdempotent(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	svc := NewService(repo, newBlobRecorder(), defaultCover)
	ctx := context.Background()

	track, err := svc.Upload(ctx, newUploadRequest(5, "votable"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	res, err := svc.Vote(ctx, track.ID, 100, false)
	if err != nil {
		t.Fatalf("first like: %v", err)
	}
	if !res.Applied || res.Rating != 1 {
		t.Fatalf("first like = %+v, want applied with rating 1", res)
	}

	res, err = svc.Vote(ctx, track.ID, 100, false)
	if err != nil {
		t.Fatalf("repeated like: %v", err)
	}
	if res.Applied || res.Rating != 1 {
		t.Fatalf("repeated like = %+v, want no-op with rating 1", res)
	}

	res, err = svc.Vote(ctx, track.ID, 100, true)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if !res.Applied || res.Rating != 0 {
		t.Fatalf("unlike = %+v, want applied with rating 0", res)
	}

	res, err = svc.Vote(ctx, track.ID, 100, true)
	if err != nil {
		t.Fatalf("repeated unlike: %v", err)
	}
	if res.Applied || res.Rating != 0 {
		t.Fatalf("repeated unlike = %+v, want no-op with rating 0", res)
	}
}

func TestVoteUnknownTrack(t *testing.T) {
	svc := NewService(repositorytest.NewFakeTrackRepo(), newBlobRecorder(), defaultCover)

	if _, err := svc.Vote(context.Background(), "nope", 1, false); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("like err = %v, want ErrTrackNotFound", err)
	}
	if _, err := svc.Vote(context.Background(), "nope", 1, true); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("unlike err = %v, want ErrTrackNotFound", err)
	}
}

func TestUpdateMetadata(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	svc := NewService(repo, newBlobRecorder(), defaultCover)
	ctx := context.Background()

	track, err := svc.Upload(ctx, newUploadRequest(9, "draft title"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	t.Run("partial update", func(t *testing.T) {
		title := "final title"
		explicit := true
		res, err := svc.UpdateMetadata(ctx, track.ID, 9, model.TrackUpdate{Title: &title, Explicit: &explicit})
		if err != nil {
			t.Fatalf("UpdateMetadata: %v", err)
		}
		if !res.Updated {
			t.Fatal("update reported not applied")
		}
		if len(res.AppliedFields) != 2 {
			t.Fatalf("applied fields = %v, want title and explicit", res.AppliedFields)
		}

		got, _ := repo.GetTrackByID(ctx, track.ID)
		if got.Title != title || !got.Explicit {
			t.Fatalf("stored track = %+v, partial update not applied", got)
		}
		if got.Genre != "house" {
			t.Fatalf("genre changed to %q by unrelated update", got.Genre)
		}
	})

	t.Run("empty update", func(t *testing.T) {
		res, err := svc.UpdateMetadata(ctx, track.ID, 9, model.TrackUpdate{})
		if err != nil {
			t.Fatalf("UpdateMetadata: %v", err)
		}
		if res.Updated {
			t.Fatal("empty update reported as applied")
		}
	})

	t.Run("wrong owner", func(t *testing.T) {
		title := "hijacked"
		res, err := svc.UpdateMetadata(ctx, track.ID, 999, model.TrackUpdate{Title: &title})
		if err != nil {
			t.Fatalf("UpdateMetadata: %v", err)
		}
		if res.Updated {
			t.Fatal("update by non-owner reported as applied")
		}
	})
}

func TestDelete(t *testing.T) {
	repo := repositorytest.NewFakeTrackRepo()
	svc := NewService(repo, newBlobRecorder(), defaultCover)
	ctx := context.Background()

	track, err := svc.Upload(ctx, newUploadRequest(4, "deletable"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	deleted, err := svc.Delete(ctx, track.ID, 4)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !deleted {
		t.Fatal("delete of owned track reported false")
	}
	if got, _ := repo.GetTrackByID(ctx, track.ID); got != nil {
		t.Fatal("track record still present after delete")
	}

	// Second delete is a no-op, not an error.
	deleted, err = svc.Delete(ctx, track.ID, 4)
	if err != nil {
		t.Fatalf("repeated Delete: %v", err)
	}
	if deleted {
		t.Fatal("repeated delete reported as applied")
	}
}

func TestReleaseBlobsSkipsDefaultCover(t *testing.T) {
	blobs := newBlobRecorder()
	svc := NewService(repositorytest.NewFakeTrackRepo(), blobs, defaultCover)

	svc.ReleaseBlobs(context.Background(), &model.Track{
		ID:       "t1",
		FileURL:  "http://blobs/audio/t1.mp3",
		CoverArt: defaultCover,
	})

	urls := blobs.deletedURLs()
	if len(urls) != 1 || urls[0] != "http://blobs/audio/t1.mp3" {
		t.Fatalf("deleted %v, want only the audio blob", urls)
	}
}

func TestReleaseBlobsDeletesCustomCover(t *testing.T) {
	blobs := newBlobRecorder()
	svc := NewService(repositorytest.NewFakeTrackRepo(), blobs, defaultCover)

	svc.ReleaseBlobs(context.Background(), &model.Track{
		ID:       "t2",
		FileURL:  "http://blobs/audio/t2.mp3",
		CoverArt: "http://blobs/covers/t2.jpg",
	})

	if urls := blobs.deletedURLs(); len(urls) != 2 {
		t.Fatalf("deleted %v, want audio and cover", urls)
	}
}
