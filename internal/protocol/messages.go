package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type              string   `json:"type"`
	ProtocolVersion   string   `json:"protocol_version"`
	SupportedVersions []string `json:"supported_versions,omitempty"`
	AgentName         string   `json:"agent_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SelectedVersion string     `json:"selected_version,omitempty"`
	SessionID       string     `json:"session_id"`
	GridParams      GridParams `json:"grid_params"`
}

// GridParams tells clients how the coordinate systems are sized.
type GridParams struct {
	ViewportPixels int  `json:"viewport_pixels"`
	MapExtent      int  `json:"map_extent"`
	FlipY          bool `json:"flip_y"`
}

// CUES (server -> client): per-frame acknowledgement.
type CuesMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Frame           uint64 `json:"frame"`
	Accepted        bool   `json:"accepted"`
	CueCount        int    `json:"cue_count"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

// ErrorMsg is sent for requests that cannot be routed at all.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

const TypeError = "ERROR"
