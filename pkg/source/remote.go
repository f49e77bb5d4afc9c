package source

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/abc0922001/apkupdater/pkg/catalog"
	"github.com/karlseguin/ccache"
	"github.com/pkg/errors"
)

// Remote is a JSON catalog served over HTTP. Responses are kept for TTL so
// repeated refreshes don't hit the server.
type Remote struct {
	URL    string
	TTL    time.Duration
	Client *http.Client

	cache *ccache.Cache
}

const defaultFetchTimeout = 30 * time.Second

// NewRemote creates a Remote. Without a client, requests time out after
// defaultFetchTimeout. Remotes may share a cache by passing the one returned
// from NewCache; a nil cache gives the Remote its own.
func NewRemote(url string, ttl time.Duration, client *http.Client, cache *ccache.Cache) *Remote {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Remote{URL: url, TTL: ttl, Client: client, cache: cache}
}

// NewCache creates a response cache for Remotes.
func NewCache() *ccache.Cache {
	return ccache.New(ccache.Configure().MaxSize(100).ItemsToPrune(10))
}

func (r *Remote) Name() string {
	return r.URL
}

func (r *Remote) Fetch(ctx context.Context) ([]catalog.Update, error) {
	if item := r.cache.Get(r.URL); item != nil && !item.Expired() {
		if cached, ok := item.Value().([]catalog.Update); ok {
			return append([]catalog.Update(nil), cached...), nil
		}
	}

	req, err := http.NewRequest(http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.Client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "fetch catalog")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch catalog: unexpected status %s", resp.Status)
	}

	var doc struct {
		Updates []entry `json:"updates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	updates, err := convert(doc.Updates)
	if err != nil {
		return nil, err
	}
	if r.TTL > 0 {
		r.cache.Set(r.URL, updates, r.TTL)
	}
	return append([]catalog.Update(nil), updates...), nil
}
