package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/dontdude/ymlint/internal/domain"
)

// ResultsURL builds the WebSocket URL streaming jobID's result from the server at baseURL.
func ResultsURL(baseURL, jobID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server url %q: unsupported scheme %q", baseURL, u.Scheme)
	}
	u.Path = "/api/ws"
	u.RawQuery = url.Values{"job_id": {jobID}}.Encode()
	return u.String(), nil
}

// FollowResult waits on the server's WebSocket for jobID's result.
func FollowResult(ctx context.Context, baseURL, jobID string) (domain.JobResult, error) {
	wsURL, err := ResultsURL(baseURL, jobID)
	if err != nil {
		return domain.JobResult{}, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	defer conn.Close()

	// ReadJSON does not watch ctx; closing the connection unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var result domain.JobResult
	if err := conn.ReadJSON(&result); err != nil {
		if ctx.Err() != nil {
			return domain.JobResult{}, ctx.Err()
		}
		return domain.JobResult{}, fmt.Errorf("failed to read result for job %s: %w", jobID, err)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return result, nil
}
