package model

// Bug represents an isolation anomaly found by a run
type Bug struct {
	BugID            ID     `json:"bug_id"`
	DBType           string `json:"db_type"`
	DBIsolation      string `json:"db_isolation"`
	CheckerIsolation string `json:"checker_isolation"`
	Timestamp        int64  `json:"timestamp"`
	BugDir           string `json:"bug_dir"`
	HistPath         string `json:"hist_path"`
	DotPath          string `json:"dot_path"`
	ConfigPath       string `json:"config_path"`
	MetadataPath     string `json:"metadata_path"`
	LogPath          string `json:"log_path"`
	TagName          string `json:"tag_name"`
	TagType          string `json:"tag_type"`
}

// Tag is the user-assigned label of a bug
type Tag struct {
	Name string `json:"tag_name"`
	Type string `json:"tag_type"`
}

// Tag returns the bug's current tag
func (b Bug) Tag() Tag {
	return Tag{Name: b.TagName, Type: b.TagType}
}

// TagRequest is the body of the bug tag endpoint
type TagRequest struct {
	BugID   string `json:"bug_id"`
	TagName string `json:"tag_name"`
	TagType string `json:"tag_type"`
}
