package adapter

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
)

// wsReadLimit bounds a single inbound frame. Envelopes are small JSON
// documents; anything near this size is a misbehaving server.
const wsReadLimit = 1 << 20

// dialWebsocket is the production [dialFunc] backed by coder/websocket.
func dialWebsocket(ctx context.Context, endpoint string) (wsConn, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, nil) //nolint:bodyclose // websocket.Dial closes the response body internally
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	conn.SetReadLimit(wsReadLimit)

	return conn, nil
}
