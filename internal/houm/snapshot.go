package houm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// snapshotTimeout bounds a single snapshot fetch.
const snapshotTimeout = 10 * time.Second

// maxSnapshotBody caps the snapshot response size (4MB). Site documents
// are small; this guards against a misbehaving endpoint.
const maxSnapshotBody = 4 << 20

// SiteInfoURL returns the snapshot endpoint for a site.
func SiteInfoURL(baseURL, siteKey string) string {
	return baseURL + "/api/site/" + siteKey
}

// FetchSiteInfo performs the synchronous snapshot fetch:
// GET <baseURL>/api/site/<siteKey>, parsed as a SiteInfo document.
//
// Any transport-level failure wraps ErrNetwork. Non-2xx responses are
// not treated as errors: the body is parsed best-effort, matching the
// permissiveness of the upstream service.
func FetchSiteInfo(ctx context.Context, client *http.Client, baseURL, siteKey string) (*SiteInfo, error) {
	if client == nil {
		client = http.DefaultClient
	}

	reqCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, SiteInfoURL(baseURL, siteKey), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrNetwork, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrNetwork, err)
	}

	var info SiteInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: parsing snapshot: %w", ErrNetwork, err)
	}

	return &info, nil
}
