package cycle

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"
)

type fakeRemote struct {
	body []byte
	err  error

	gotPath  string
	gotQuery url.Values
}

func (f *fakeRemote) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	f.gotPath = path
	f.gotQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	fetchStart := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("full fetch when never polled", func(t *testing.T) {
		remote := &fakeRemote{body: []byte(`<people><person><id>1</id></person></people>`)}
		f := NewFetcher(remote)
		f.now = func() time.Time { return fetchStart }

		res, err := f.Fetch(ctx, "people", nil)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if remote.gotPath != "/people.xml" {
			t.Errorf("path = %q, want %q", remote.gotPath, "/people.xml")
		}
		if remote.gotQuery.Has("since") {
			t.Errorf("since = %q, want absent", remote.gotQuery.Get("since"))
		}
		if !res.FetchedAt.Equal(fetchStart) {
			t.Errorf("FetchedAt = %v, want %v", res.FetchedAt, fetchStart)
		}
		if len(res.Entities) != 1 || res.Entities[0].ID != "1" {
			t.Errorf("Entities = %+v", res.Entities)
		}
	})

	t.Run("incremental fetch scopes to last poll", func(t *testing.T) {
		remote := &fakeRemote{body: []byte(`<people/>`)}
		f := NewFetcher(remote)

		lastPolled := time.Date(2025, 5, 31, 6, 0, 0, 0, time.UTC)
		if _, err := f.Fetch(ctx, "people", &lastPolled); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if got := remote.gotQuery.Get("since"); got != "2025-05-31T06:00:00Z" {
			t.Errorf("since = %q, want %q", got, "2025-05-31T06:00:00Z")
		}
	})

	t.Run("transport failure wraps as FetchError", func(t *testing.T) {
		cause := errors.New("connection refused")
		f := NewFetcher(&fakeRemote{err: cause})

		_, err := f.Fetch(ctx, "people", nil)
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("Fetch() error = %v, want *FetchError", err)
		}
		if fe.Endpoint != "people" {
			t.Errorf("Endpoint = %q, want %q", fe.Endpoint, "people")
		}
		if !errors.Is(err, cause) {
			t.Errorf("error does not wrap %v", cause)
		}
	})

	t.Run("decode failure wraps as FetchError", func(t *testing.T) {
		f := NewFetcher(&fakeRemote{body: []byte(`<people><person>`)})

		_, err := f.Fetch(ctx, "people", nil)
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("Fetch() error = %v, want *FetchError", err)
		}
	})
}
