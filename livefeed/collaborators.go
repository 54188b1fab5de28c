package livefeed

import (
	"context"

	"github.com/vovakirdan/livefeed-go/livefeed/rest"
)

// RESTSession resolves the author through the session service.
type RESTSession struct {
	Client *rest.Client
}

func (s RESTSession) Author(ctx context.Context) (string, error) {
	resp, err := s.Client.Session(ctx)
	if err != nil {
		return "", WrapError(ErrorNotAuthenticated, "session lookup failed", err)
	}
	if resp.Author == "" {
		return "", ErrNotAuthenticated
	}
	return resp.Author, nil
}

// RESTUploader stores images through the upload service.
type RESTUploader struct {
	Client *rest.Client
}

func (u RESTUploader) Upload(ctx context.Context, img Image) (string, error) {
	resp, err := u.Client.Upload(ctx, img.Name, img.Data)
	if err != nil {
		return "", err
	}
	return resp.ImageRef, nil
}

// StaticSession always reports the same author. An empty author is
// unauthenticated.
type StaticSession string

func (s StaticSession) Author(context.Context) (string, error) {
	if s == "" {
		return "", ErrNotAuthenticated
	}
	return string(s), nil
}
