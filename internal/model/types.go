package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Run identifies one recorded experiment execution.
type Run struct {
	VersionedRecord
	ID         string `json:"id"`
	Experiment string `json:"experiment"`
	Seed       int64  `json:"seed"`
	Steps      int    `json:"steps"`
	CreatedAt  int64  `json:"created_at"` // unix seconds
}

// DeviceLayout is the frozen geometry of one device in a run: contact or
// target coordinates in micrometers.
type DeviceLayout struct {
	VersionedRecord
	Device string       `json:"device"`
	Kind   string       `json:"kind"` // probe, scope or stimulator
	Coords [][3]float32 `json:"coords"`
}

// Recording holds the observable readings of one device over a run, one
// sample vector per captured step.
type Recording struct {
	VersionedRecord
	RunID   string      `json:"run_id"`
	Device  string      `json:"device"`
	Steps   []int       `json:"steps"`
	Samples [][]float64 `json:"samples"`
}
