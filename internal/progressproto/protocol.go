package progressproto

// Version is the progress observer protocol version.
const Version = "0.1"

// Client -> Server. First message on the progress WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// HTTP response for GET /v1/progress/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion  string    `json:"protocol_version"`
	RunID            string    `json:"run_id"`
	GenParams        GenParams `json:"gen_params"`
	PrototypePalette []string  `json:"prototype_palette"`
}

type GenParams struct {
	Height           int    `json:"height"`
	DefaultExtent    int    `json:"default_extent"`
	RangeLimit       int    `json:"range_limit"`
	RangeLimitCenter [3]int `json:"range_limit_center"`
	Seed             int64  `json:"seed"`
}

// Server -> Client. Sent whenever the solver reports progress.
type ProgressMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Remaining     int `json:"remaining"`
	Failures      int `json:"failures"`
	Collapsed     int `json:"collapsed"`
	PendingBuilds int `json:"pending_builds"`
}
