package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Command actions accepted by the player client.
const (
	ActionPlay     = "play"
	ActionPause    = "pause"
	ActionSeek     = "seek"
	ActionTransfer = "transfer"
)

// Command is the logical playback instruction relayed from the frontend.
type Command struct {
	Action     string `json:"action" binding:"required"`
	DeviceID   string `json:"device_id,omitempty"`
	TrackURI   string `json:"track_uri,omitempty"`
	PositionMs *int   `json:"position_ms,omitempty"`
}

// ErrInvalidCommand is returned before any network call for commands that
// cannot be expressed against the player API.
var ErrInvalidCommand = errors.New("invalid playback command")

// APIError carries a non-2xx player API response verbatim for diagnosis.
// The client performs no retries; retry policy belongs to the caller.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify api returned %d: %s", e.Status, e.Body)
}

// PlayerClient issues bearer-authenticated playback calls against the
// Spotify Web API on behalf of the delegated session.
type PlayerClient struct {
	baseURL string
	http    *http.Client
}

func NewPlayerClient(baseURL string) *PlayerClient {
	return &PlayerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Invoke translates cmd into one or two player API calls. A "play" with both
// a track URI and a position issues start-playback then a separate seek; the
// pair is not atomic and a failed seek leaves playback running from the
// start with no compensation.
func (c *PlayerClient) Invoke(ctx context.Context, accessToken string, cmd Command) error {
	switch cmd.Action {
	case ActionPlay:
		body := map[string]any{}
		if cmd.TrackURI != "" {
			body["uris"] = []string{cmd.TrackURI}
		}
		if err := c.put(ctx, accessToken, "/v1/me/player/play", nil, body); err != nil {
			return err
		}
		if cmd.PositionMs != nil {
			return c.seek(ctx, accessToken, *cmd.PositionMs)
		}
		return nil
	case ActionPause:
		return c.put(ctx, accessToken, "/v1/me/player/pause", nil, nil)
	case ActionSeek:
		if cmd.PositionMs == nil {
			return ErrInvalidCommand
		}
		return c.seek(ctx, accessToken, *cmd.PositionMs)
	case ActionTransfer:
		if cmd.DeviceID == "" {
			return ErrInvalidCommand
		}
		return c.put(ctx, accessToken, "/v1/me/player", nil, map[string]any{
			"device_ids": []string{cmd.DeviceID},
			"play":       false,
		})
	default:
		return ErrInvalidCommand
	}
}

func (c *PlayerClient) seek(ctx context.Context, accessToken string, positionMs int) error {
	q := url.Values{}
	q.Set("position_ms", strconv.Itoa(positionMs))
	return c.put(ctx, accessToken, "/v1/me/player/seek", q, nil)
}

func (c *PlayerClient) put(ctx context.Context, accessToken, path string, query url.Values, body any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	return nil
}
