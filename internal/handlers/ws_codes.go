// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the game socket.
// These provide more specific reasons for closure than standard codes.
const (
	SlowConsumerError       websocket.StatusCode = 3000 // The client's send buffer overflowed.
	ReplacedConnectionError websocket.StatusCode = 3001 // A newer connection reclaimed the same player id.
)
