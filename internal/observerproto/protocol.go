package observerproto

import "cuecast.ai/internal/protocol"

// Version is the observer protocol version (separate from the bridge protocol).
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeOverlay   = "OVERLAY"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// IncludeDebug asks for the diagnostic record alongside the cues.
	IncludeDebug bool `json:"include_debug,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion       string              `json:"protocol_version"`
	BridgeProtocolVersion string              `json:"bridge_protocol_version"`
	GridParams            protocol.GridParams `json:"grid_params"`
	// Published counts overlay documents broadcast so far.
	Published   uint64 `json:"published"`
	Subscribers int    `json:"subscribers"`
}

// Server -> Client. Sent once per processed frame.
type OverlayMsg struct {
	Type            string              `json:"type"`
	ProtocolVersion string              `json:"protocol_version"`
	Seq             uint64              `json:"seq"`
	Doc             protocol.OverlayDoc `json:"doc"`
}
