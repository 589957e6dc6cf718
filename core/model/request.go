package model

// Request sources recorded on events and history entries.
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
	SourceCLI  = "cli"
)

// EstimateRequest asks a named model for a range estimate. Params holds the
// raw, not yet validated, input values keyed by their json names.
type EstimateRequest struct {
	RequestID string         `json:"request_id,omitempty"`
	Model     string         `json:"model"`
	Params    map[string]any `json:"params"`
	VehicleID string         `json:"vehicle_id,omitempty"`
	Source    string         `json:"-"`
}
