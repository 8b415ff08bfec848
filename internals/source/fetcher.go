package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// maxPages bounds the next-token loop so a misbehaving source cannot
// keep the fetch alive forever
const maxPages = 1000

// Fetcher retrieves the full current set of indicators from the source TI feed
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewFetcher returns a pointer to a new Fetcher instance
func NewFetcher(baseURL, apiKey string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// FetchResult carries one fetched indicator set with the label of its origin system
type FetchResult struct {
	SourceSystem string
	Indicators   []map[string]interface{}
}

// FetchError reports a failed or malformed indicator fetch
type FetchError struct {
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch failed: %s", e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type indicatorsPage struct {
	Count        int         `json:"count"`
	Total        int         `json:"total"`
	More         bool        `json:"more"`
	Next         string      `json:"next"`
	SourceSystem string      `json:"sourcesystem"`
	StixObjects  interface{} `json:"stixobjects"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// ProbeHealth checks the source health endpoint. The probe is advisory only:
// a failed or unreachable probe is logged as a warning by the caller and never
// aborts the fetch.
func (f *Fetcher) ProbeHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	f.setAuthHeaders(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health endpoint returned HTTP %d", resp.StatusCode)
	}

	var hr healthResponse
	if err := jsoniter.NewDecoder(resp.Body).Decode(&hr); err == nil && hr.Status != "" {
		zap.L().Debug("Source health probe", zap.String("status", hr.Status))
	}
	return nil
}

// FetchAll retrieves the full current indicator set, following the source's
// next-token paging until the last page. A source that returns everything in
// one page results in exactly one request.
func (f *Fetcher) FetchAll(ctx context.Context) (*FetchResult, error) {
	if err := f.ProbeHealth(ctx); err != nil {
		zap.L().Warn("Source health probe failed, proceeding with fetch anyway", zap.Error(err))
	}

	result := &FetchResult{Indicators: make([]map[string]interface{}, 0)}

	next := ""
	for page := 0; page < maxPages; page++ {
		p, err := f.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}

		indicators, err := normalizeObjects(p.StixObjects)
		if err != nil {
			return nil, err
		}
		result.Indicators = append(result.Indicators, indicators...)
		if p.SourceSystem != "" {
			result.SourceSystem = p.SourceSystem
		}

		if !p.More || p.Next == "" {
			// The destination contract makes sourcesystem mandatory alongside the
			// indicators, so a feed that delivers objects without naming itself is
			// malformed, not usable.
			if len(result.Indicators) > 0 && result.SourceSystem == "" {
				return nil, &FetchError{Reason: "source response without sourcesystem"}
			}
			return result, nil
		}
		next = p.Next
	}
	return nil, &FetchError{Reason: fmt.Sprintf("paging did not terminate after %d pages", maxPages)}
}

func (f *Fetcher) fetchPage(ctx context.Context, next string) (*indicatorsPage, error) {
	indicatorsURL := f.baseURL + "/indicators"
	if next != "" {
		indicatorsURL += "?next=" + url.QueryEscape(next)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indicatorsURL, nil)
	if err != nil {
		return nil, &FetchError{Reason: "source unreachable", Err: err}
	}
	f.setAuthHeaders(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Reason: "source unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &FetchError{Reason: fmt.Sprintf("source returned HTTP %d: %s", resp.StatusCode, string(body))}
	}

	var p indicatorsPage
	if err := jsoniter.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, &FetchError{Reason: "malformed source response", Err: err}
	}
	return &p, nil
}

// The source documents both X-API-Key and bearer authentication, without
// stating which one a given deployment reads. Both carry the same key.
func (f *Fetcher) setAuthHeaders(req *http.Request) {
	if f.apiKey == "" {
		return
	}
	req.Header.Set("X-API-Key", f.apiKey)
	req.Header.Set("Authorization", "Bearer "+f.apiKey)
}

// normalizeObjects coerces the stixobjects field into a flat indicator slice.
// A single object is treated as a one-element collection so downstream counting
// and slicing behave identically either way. A missing field is a FetchError.
func normalizeObjects(raw interface{}) ([]map[string]interface{}, error) {
	switch objects := raw.(type) {
	case nil:
		return nil, &FetchError{Reason: "no indicators found"}
	case []interface{}:
		indicators := make([]map[string]interface{}, 0, len(objects))
		for _, o := range objects {
			indicator, ok := o.(map[string]interface{})
			if !ok {
				zap.L().Warn("Skipping non-object entry in stixobjects", zap.Any("entry", o))
				continue
			}
			indicators = append(indicators, indicator)
		}
		return indicators, nil
	case map[string]interface{}:
		return []map[string]interface{}{objects}, nil
	default:
		return nil, &FetchError{Reason: fmt.Sprintf("unexpected stixobjects type %T", raw)}
	}
}
