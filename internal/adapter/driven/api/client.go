// Package api implements the AttendanceAPI port against the tenant-scoped
// attendance backend. It is the single chokepoint for outbound calls:
// it attaches the current access token, classifies failures into the
// unreachable / validation / authentication taxonomy, and replays a call
// exactly once after a successful token refresh.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/fieldclock/fieldclock/internal/domain/model"
	"github.com/fieldclock/fieldclock/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.AttendanceAPI  = (*Client)(nil)
	_ driven.TokenRefresher = (*Client)(nil)
)

// TokenSource provides the current access token and a way to refresh it.
// Implemented by the token custodian; Refresh carries its single-flight
// guarantee, so concurrent 401s here trigger exactly one exchange.
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context) error
}

// Client implements the AttendanceAPI and TokenRefresher ports over plain
// JSON HTTP. The transport stack places an in-memory ETag cache under the
// client so repeated record listings are served conditionally.
type Client struct {
	http    *http.Client
	baseURL string
	tenant  string
	tokens  TokenSource
}

// NewClient creates a backend client. baseURL is the API root without a
// trailing slash; tenant is the slug prepended to attendance routes. The
// timeout applies to every call; a timed-out call is reported as
// unreachable.
func NewClient(baseURL, tenant string, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: httpcache.NewMemoryCacheTransport(),
		},
		baseURL: baseURL,
		tenant:  tenant,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, tenant string) *Client {
	return &Client{http: httpClient, baseURL: baseURL, tenant: tenant}
}

// SetTokenSource wires the token custodian in after construction. The
// custodian itself needs this client for the refresh exchange, so the two
// cannot be constructed in one step.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

// Login exchanges credentials for a token pair and user profile.
func (c *Client) Login(ctx context.Context, email, password string) (model.TokenPair, *model.User, error) {
	body := map[string]string{"email": email, "password": password}

	var data struct {
		Access  string      `json:"access"`
		Refresh string      `json:"refresh"`
		User    *model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "auth/login/", body, &data, false); err != nil {
		return model.TokenPair{}, nil, err
	}

	return model.TokenPair{Access: data.Access, Refresh: data.Refresh}, data.User, nil
}

// RefreshSession exchanges the refresh token for a new access token. The
// backend may rotate the refresh token; when it does not, the old one stays
// valid and is returned unchanged.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	body := map[string]string{"refresh": refreshToken}

	var data struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := c.do(ctx, http.MethodPost, "auth/token/refresh/", body, &data, false); err != nil {
		return model.TokenPair{}, err
	}

	pair := model.TokenPair{Access: data.Access, Refresh: data.Refresh}
	if pair.Refresh == "" {
		pair.Refresh = refreshToken
	}
	return pair, nil
}

// Logout asks the backend to blacklist the refresh token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh": refreshToken}
	return c.do(ctx, http.MethodPost, "auth/logout/", body, nil, true)
}

// ClockIn submits a clock-in.
func (c *Client) ClockIn(ctx context.Context, req model.ClockInRequest) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	path := c.tenant + "/attendance/clock-in/"
	if err := c.do(ctx, http.MethodPost, path, req, &record, true); err != nil {
		return nil, err
	}
	return &record, nil
}

// ClockOut submits a clock-out against an existing record.
func (c *Client) ClockOut(ctx context.Context, req model.ClockOutRequest) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	path := c.tenant + "/attendance/clock-out/"
	if err := c.do(ctx, http.MethodPost, path, req, &record, true); err != nil {
		return nil, err
	}
	return &record, nil
}

// syncOfflineBody is an offline payload plus the integrity token the backend
// uses for duplicate detection.
type syncOfflineBody struct {
	model.OfflineAttendance
	IntegrityHash string `json:"integrity_hash"`
}

// SyncOffline delivers one queued offline submission.
func (c *Client) SyncOffline(ctx context.Context, payload model.OfflineAttendance, integrityToken string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	path := c.tenant + "/attendance/offline-sync/"
	body := syncOfflineBody{OfflineAttendance: payload, IntegrityHash: integrityToken}
	if err := c.do(ctx, http.MethodPost, path, body, &record, true); err != nil {
		return nil, err
	}
	return &record, nil
}

// FetchRecords lists the employee's attendance records.
func (c *Client) FetchRecords(ctx context.Context) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	path := c.tenant + "/attendance/records/"
	if err := c.do(ctx, http.MethodGet, path, nil, &records, true); err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	return records, nil
}

// do executes one backend call with the gateway semantics: attach token,
// classify errors, and on an authorization failure refresh once and replay
// once. The attempt counter is explicit; nothing is mutated on the request.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: marshal body: %w", method, path, err)
		}
		payload = raw
	}

	for attempt := 0; ; attempt++ {
		status, data, apiErr, err := c.roundTrip(ctx, method, path, payload, authed)
		if err != nil {
			return fmt.Errorf("%s %s: %w: %v", method, path, driven.ErrUnreachable, err)
		}

		switch {
		case status == http.StatusUnauthorized:
			if authed && attempt == 0 && c.tokens != nil {
				if err := c.tokens.Refresh(ctx); err != nil {
					return fmt.Errorf("%s %s: refresh after rejection: %w", method, path, err)
				}
				continue
			}
			detail := "access token rejected"
			if apiErr != nil {
				detail = apiErr.Detail
			}
			return fmt.Errorf("%s %s: %s: %w", method, path, detail, driven.ErrAuthRequired)

		case status == http.StatusBadRequest || status == http.StatusForbidden ||
			status == http.StatusConflict || status == http.StatusUnprocessableEntity:
			verr := &driven.ValidationError{Code: status, Detail: "request rejected"}
			if apiErr != nil {
				verr.Code = apiErr.Code
				verr.Detail = apiErr.Detail
			}
			return verr

		case status < 200 || status > 299:
			return fmt.Errorf("%s %s: unexpected status %d", method, path, status)
		}

		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("%s %s: decode response: %w", method, path, err)
			}
		}
		return nil
	}
}

// roundTrip performs a single HTTP exchange and decodes the response
// envelope. A transport-level failure is reported through err; an HTTP
// response always comes back as (status, data, apiErr, nil).
func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, authed bool) (int, json.RawMessage, *envelopeError, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, nil, err
	}

	var env envelope
	if len(raw) > 0 {
		// Non-envelope bodies (proxies, gateways) are tolerated; status
		// classification still applies.
		_ = json.Unmarshal(raw, &env)
	}

	data := env.Data
	if data == nil {
		data = raw
	}
	return resp.StatusCode, data, env.Error, nil
}
