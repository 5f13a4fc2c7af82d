// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes sent by the round socket before it hangs up.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client did not negotiate the "blackjack" subprotocol.
	InvalidAuthTokenError websocket.StatusCode = 3001 // Missing, invalid or expired auth token.
)
