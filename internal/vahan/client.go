package vahan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/carvista/rcview/internal/config"
	log "github.com/sirupsen/logrus"
)

// Result is the triaged outcome of a provider lookup. Data is nil when the
// provider has no record; ErrorMessage is set when the call failed in a way
// the user should see.
type Result struct {
	Data         map[string]any
	ErrorMessage string
}

// Client calls the paid Vahan lookup API. Calls are never retried: a failed
// request costs nothing, a duplicate success costs money.
type Client struct {
	baseURL    string
	apiKey     string
	maxAge     string
	httpClient *http.Client
}

// NewClient constructs a Client with a bounded-timeout HTTP client.
func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxAge:     cfg.MaxAge,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Search fetches the vehicle record for the registration number.
func (c *Client) Search(ctx context.Context, plate string) Result {
	if c.apiKey == "" {
		log.Warn("vahan: api key not configured")
		return Result{ErrorMessage: "Lookup provider is not configured."}
	}

	query := url.Values{}
	query.Set("apiTag", "RC_PRO")
	query.Set("vehicle_num", strings.TrimSpace(plate))
	query.Set("maxAge", c.maxAge)
	reqURL := c.baseURL + "?" + query.Encode()

	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if errReq != nil {
		return Result{ErrorMessage: "Lookup request could not be built."}
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		log.WithError(errDo).Error("vahan: lookup call failed")
		return Result{ErrorMessage: "Lookup provider is unreachable. Please try again later."}
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		log.WithError(errRead).Error("vahan: read response failed")
		return Result{ErrorMessage: "Lookup provider response could not be read."}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Error("vahan: lookup returned non-2xx")
		return Result{ErrorMessage: fmt.Sprintf("Lookup provider returned status %d.", resp.StatusCode)}
	}

	var root map[string]any
	if errUnmarshal := json.Unmarshal(body, &root); errUnmarshal != nil {
		log.WithError(errUnmarshal).Error("vahan: parse response failed")
		return Result{ErrorMessage: "Lookup provider returned an unreadable response."}
	}

	if rawErr, ok := root["error"]; ok && rawErr != nil {
		msg, _ := rawErr.(string)
		if strings.TrimSpace(msg) == "" {
			msg = "Lookup provider reported an error."
		}
		return Result{ErrorMessage: msg}
	}

	return Result{Data: extractData(root)}
}

// extractData picks the record map out of the provider envelope. Responses
// carry it at the root "data" field; older ones nest it under
// "response.data".
func extractData(root map[string]any) map[string]any {
	if data, ok := root["data"].(map[string]any); ok {
		return data
	}
	if response, ok := root["response"].(map[string]any); ok {
		if data, ok := response["data"].(map[string]any); ok {
			return data
		}
	}
	return nil
}
