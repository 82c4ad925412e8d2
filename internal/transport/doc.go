// Package transport streams captured recordings to the remote service as
// base64-framed JSON chunk envelopes over a long-lived WebSocket
// connection, paced by a fixed inter-chunk delay.
package transport
