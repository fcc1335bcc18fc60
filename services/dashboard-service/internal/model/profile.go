package model

// RunProfile holds the checker profiling series of a run
type RunProfile struct {
	Name   string          `json:"name"`
	XAxis  []float64       `json:"x_axis"`
	Series []ProfileSeries `json:"series"`
}

// ProfileSeries is the profile of a single checker
type ProfileSeries struct {
	Checker    string               `json:"checker"`
	Time       []float64            `json:"time"`
	Memory     []float64            `json:"memory"`
	StageTimes map[string][]float64 `json:"stage_times"`
}

// RuntimeInfo holds CPU and memory samples taken during a run
type RuntimeInfo struct {
	XAxis  []float64 `json:"x_axis"`
	CPU    []float64 `json:"cpu"`
	Memory []float64 `json:"memory"`
}

// Artifact is a downloaded binary file, kept opaque
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadResult is the response of the history upload endpoint
type UploadResult struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
