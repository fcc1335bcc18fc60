package model

// Run statuses reported by the run list
const (
	RunStatusFinished = "Finished"
	RunStatusRunning  = "Running"
	RunStatusPending  = "Pending"
)

// Run represents one execution of the isolation checker
type Run struct {
	RunID            ID       `json:"run_id"`
	DBType           string   `json:"db_type"`
	DBIsolation      string   `json:"db_isolation"`
	CheckerIsolation string   `json:"checker_isolation"`
	Timestamp        int64    `json:"timestamp"`
	HistCount        FlexInt  `json:"hist_count"`
	BugCount         FlexInt  `json:"bug_count"`
	DirPath          string   `json:"dir_path"`
	Status           string   `json:"status"`
	Percentage       float64  `json:"percentage"`
	ProfilePathList  []string `json:"profile_path_list,omitempty"`
	RuntimeInfoPath  string   `json:"runtime_info_path,omitempty"`
}

// Finished reports whether the run has completed
func (r Run) Finished() bool {
	return r.Status == RunStatusFinished
}

// RunProgress is a snapshot of the run currently executing on the backend
type RunProgress struct {
	RunID      ID           `json:"run_id,omitempty"`
	Running    bool         `json:"running"`
	Percentage float64      `json:"percentage"`
	LogTail    string       `json:"log_tail,omitempty"`
	Runtime    *RuntimeInfo `json:"runtime,omitempty"`
}
