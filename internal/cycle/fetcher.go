package cycle

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/njbennett/changepoll/internal/api"
	"github.com/njbennett/changepoll/internal/auth"
	"github.com/njbennett/changepoll/internal/model"
)

// RemoteClient is the slice of the API client the engine consumes: one GET
// returning the raw XML body for an endpoint path.
type RemoteClient interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// ClientFactory returns a client bound to a subscription's credential.
// Called once per cycle, before any fetch.
type ClientFactory func(cred auth.Credential) RemoteClient

// FetchError marks one endpoint's data as unavailable for this cycle.
type FetchError struct {
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchResult is one endpoint's successful fetch.
type FetchResult struct {
	Endpoint string

	// FetchedAt is the fetch-start time (UTC). It becomes the endpoint's
	// new last-polled value once the cycle finishes processing the
	// endpoint's entities.
	FetchedAt time.Time

	// Entities in remote order.
	Entities []model.RawEntity
}

// Fetcher performs one incremental fetch for a single endpoint.
type Fetcher struct {
	client RemoteClient
	now    func() time.Time
}

// NewFetcher creates a Fetcher over an authorized client.
func NewFetcher(client RemoteClient) *Fetcher {
	return &Fetcher{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Fetch retrieves an endpoint's records. A nil lastPolled performs a full
// fetch; otherwise the request is scoped to changes since that time.
// Transport and decode failures come back as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string, lastPolled *time.Time) (*FetchResult, error) {
	fetchedAt := f.now()

	query := url.Values{}
	if lastPolled != nil {
		query.Set("since", lastPolled.UTC().Format(time.RFC3339))
	}

	body, err := f.client.Get(ctx, "/"+endpoint+".xml", query)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}

	col, err := api.ParseCollection(body)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}

	return &FetchResult{
		Endpoint:  endpoint,
		FetchedAt: fetchedAt,
		Entities:  col.Records,
	}, nil
}
