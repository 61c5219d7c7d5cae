// Package client implements the sync side of a dashboard client: an HTTP
// API wrapper and a controller reconciling local edits with the
// server-authoritative document.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/awidyan/homeboard/internal/models"
)

// API calls the dashboard server's config endpoints. Every instance sends
// a stable client ID so server logs can tell devices apart.
type API struct {
	baseURL  string
	clientID string
	http     *http.Client
}

// NewAPI creates an API client for a server base URL (scheme://host:port,
// including any path prefix).
func NewAPI(baseURL string) *API {
	return &API{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		clientID: uuid.New().String(),
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type configResponse struct {
	Config             *models.Dashboard `json:"config"`
	ModificationMarker int64             `json:"modification_marker"`
}

type saveResponse struct {
	ModificationMarker int64 `json:"modification_marker"`
}

type changesResponse struct {
	Changed            bool  `json:"changed"`
	ModificationMarker int64 `json:"modification_marker"`
}

// FetchConfig loads the full document and its marker.
func (a *API) FetchConfig(ctx context.Context) (*models.Dashboard, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/config", nil)
	if err != nil {
		return nil, 0, err
	}

	var resp configResponse
	if err := a.do(req, &resp); err != nil {
		return nil, 0, err
	}
	if resp.Config == nil {
		return nil, 0, fmt.Errorf("server returned no config")
	}
	return resp.Config, resp.ModificationMarker, nil
}

// SaveConfig pushes the full document and returns the new marker.
func (a *API) SaveConfig(ctx context.Context, doc *models.Dashboard) (int64, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, a.baseURL+"/api/config", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp saveResponse
	if err := a.do(req, &resp); err != nil {
		return 0, err
	}
	return resp.ModificationMarker, nil
}

// CheckChanges asks whether the server document moved past the given
// marker.
func (a *API) CheckChanges(ctx context.Context, since int64) (bool, int64, error) {
	url := a.baseURL + "/api/config/changes?since=" + strconv.FormatInt(since, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, 0, err
	}

	var resp changesResponse
	if err := a.do(req, &resp); err != nil {
		return false, 0, err
	}
	return resp.Changed, resp.ModificationMarker, nil
}

func (a *API) do(req *http.Request, out interface{}) error {
	req.Header.Set("X-Client-ID", a.clientID)

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
