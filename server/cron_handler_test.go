package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dropfm/config"
	"dropfm/core/scheduler"
	"dropfm/model"
	"dropfm/repository/repositorytest"
)

type noopBlobStore struct{}

func (noopBlobStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	return "http://blobs/" + objectName, nil
}

func (noopBlobStore) Delete(ctx context.Context, url string) error { return nil }

func newCronFixture(secret string) (*APIHandler, *repositorytest.FakeTrackRepo) {
	repo := repositorytest.NewFakeTrackRepo()
	sweeps := scheduler.New(repo, noopBlobStore{}, scheduler.Config{Retention: 24 * time.Hour})
	cfg := &config.Config{CronSecret: secret, TrackRetention: 24 * time.Hour}
	return NewAPIHandler(nil, nil, nil, nil, sweeps, nil, nil, cfg), repo
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestCronExpireRejectsWrongSecret(t *testing.T) {
	h, _ := newCronFixture("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/cron/expire?secret=wrong", nil)
	rec := httptest.NewRecorder()
	h.CronExpireHandler(rec, req)

	// Wrong secret still answers 200 so external schedulers don't retry-storm.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["success"] != false {
		t.Fatalf("body = %v, want success=false", body)
	}
}

func TestCronEmptyConfiguredSecretNeverAuthorizes(t *testing.T) {
	h, _ := newCronFixture("")

	req := httptest.NewRequest(http.MethodPost, "/api/cron/expire", nil)
	rec := httptest.NewRecorder()
	h.CronExpireHandler(rec, req)

	if body := decodeBody(t, rec); body["success"] != false {
		t.Fatalf("body = %v, unset secret must not authorize empty query secret", body)
	}
}

func TestCronExpireRunsSweep(t *testing.T) {
	h, repo := newCronFixture("s3cret")

	err := repo.CreateTrack(context.Background(), &model.Track{
		ID:        "stale",
		Title:     "stale",
		ArtistID:  1,
		Expirable: true,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/cron/expire?secret=s3cret", nil)
	rec := httptest.NewRecorder()
	h.CronExpireHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("body = %v, want success=true", body)
	}
	if body["expired"] != float64(1) {
		t.Fatalf("body = %v, want expired=1", body)
	}

	track, _ := repo.GetTrackByID(context.Background(), "stale")
	if !track.IsExpired {
		t.Fatal("cron expire did not expire the stale track")
	}
}

func TestCronDeleteReportsTally(t *testing.T) {
	h, repo := newCronFixture("s3cret")
	ctx := context.Background()

	for i, id := range []string{"a", "b"} {
		err := repo.CreateTrack(ctx, &model.Track{
			ID:        id,
			Title:     id,
			ArtistID:  int64(i + 1),
			IsExpired: true,
			Expirable: true,
			CreatedAt: time.Now().Add(-48 * time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateTrack(%s): %v", id, err)
		}
	}
	repo.DeleteErr["b"] = errors.New("lock wait timeout")

	req := httptest.NewRequest(http.MethodPost, "/api/cron/delete?secret=s3cret", nil)
	rec := httptest.NewRecorder()
	h.CronDeleteHandler(rec, req)

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("body = %v, want success=true", body)
	}
	if body["deleted"] != float64(1) || body["failed"] != float64(1) {
		t.Fatalf("body = %v, want deleted=1 failed=1", body)
	}
}
