package storage

import (
	"context"
	"net/url"
	"time"
)

// StubPhotoStore returns unsigned URLs under BaseURL for local runs without a bucket.
type StubPhotoStore struct {
	BaseURL string
}

func NewStubPhotoStore() *StubPhotoStore {
	return &StubPhotoStore{BaseURL: "http://localhost:9000/dev-photos"}
}

func (s *StubPhotoStore) GenerateUploadURL(_ context.Context, storageKey, _ string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errEmptyKey
	}
	expiresAt := time.Now().Add(expiresIn)
	q := url.Values{"expires": {expiresAt.UTC().Format(time.RFC3339)}}
	return s.BaseURL + "/" + storageKey + "?" + q.Encode(), expiresAt, nil
}

func (s *StubPhotoStore) Ping(context.Context) error { return nil }
