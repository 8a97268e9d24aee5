package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
)

// Client is the sequencer's view of the price-feed sidecar process (spec
// Non-goals: "the price-feed sidecar process itself (only its
// client-facing interface is modeled)"). ExtendVote calls Prices once per
// height to build this validator's VoteExtension.
type Client interface {
	Prices(ctx context.Context, pairs []sequencer.CurrencyPairID) (map[sequencer.CurrencyPairID]sequencer.Uint128, error)
}

// sidecarPriceResponse is the JSON body the sidecar returns, keyed by
// currency pair id as a decimal string (JSON object keys are always
// strings).
type sidecarPriceResponse struct {
	Prices map[string]sidecarPrice `json:"prices"`
}

type sidecarPrice struct {
	Hi uint64 `json:"hi"`
	Lo uint64 `json:"lo"`
}

// HTTPClient fetches prices from a local sidecar over HTTP+JSON, bounded
// by a fixed per-request timeout (the config field SPEC_FULL.md names is
// price_feed_client_timeout_ms).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Prices(ctx context.Context, pairs []sequencer.CurrencyPairID) (map[sequencer.CurrencyPairID]sequencer.Uint128, error) {
	url := c.baseURL + "/prices"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, serrors.Wrap(serrors.KindSidecarUnavailable, "build price-feed request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, serrors.Wrap(serrors.KindSidecarUnavailable, "price-feed sidecar unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, serrors.New(serrors.KindSidecarUnavailable,
			fmt.Sprintf("price-feed sidecar returned status %d", resp.StatusCode))
	}

	var body sidecarPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, serrors.Wrap(serrors.KindSidecarUnavailable, "decode price-feed response", err)
	}

	wanted := make(map[sequencer.CurrencyPairID]bool, len(pairs))
	for _, id := range pairs {
		wanted[id] = true
	}

	out := make(map[sequencer.CurrencyPairID]sequencer.Uint128, len(body.Prices))
	for key, p := range body.Prices {
		var id uint64
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			continue
		}
		cpID := sequencer.CurrencyPairID(id)
		if !wanted[cpID] {
			continue
		}
		out[cpID] = sequencer.Uint128{Hi: p.Hi, Lo: p.Lo}
	}
	return out, nil
}
