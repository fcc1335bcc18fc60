package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

// Backend paths
const (
	historyCountPath       = "/history_count"
	bugCountPath           = "/bug_count"
	runPath                = "/run"
	bugListPath            = "/bug_list"
	runListPath            = "/run_list"
	downloadBugPath        = "/download/"
	downloadRunPath        = "/download_run/"
	downloadDotPath        = "/download_dot/"
	viewPath               = "/view/"
	currentLogPath         = "/current_log"
	bugTagPath             = "/bug/tag/"
	runProfilePath         = "/run_profile/"
	runtimeInfoPath        = "/runtime_info/"
	currentRunIDPath       = "/current_run_id"
	currentRuntimeInfoPath = "/current_runtime_info"
	currentProfilePath     = "/current_profile"
	uploadPath             = "/upload/"
	stopPath               = "/stop/"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"

	// maxErrorBody bounds how much of a failed response ends up in Error.Message
	maxErrorBody = 512
)

// DashboardClient handles communication with the DBTest backend. It is safe
// for concurrent use and holds no state besides its configuration.
type DashboardClient struct {
	baseURL    string
	timeout    time.Duration
	token      string
	httpClient *http.Client
	observer   Observer
	logger     *zap.Logger
}

// NewDashboardClient creates a new backend client
func NewDashboardClient(baseURL string, logger *zap.Logger, opts ...Option) *DashboardClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &DashboardClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Timeout = c.timeout

	return c
}

// BaseURL returns the backend address requests are sent to
func (c *DashboardClient) BaseURL() string {
	return c.baseURL
}

// Timeout returns the timeout applied to every request
func (c *DashboardClient) Timeout() time.Duration {
	return c.timeout
}

// GetHistoryCount retrieves the number of histories checked so far
func (c *DashboardClient) GetHistoryCount(ctx context.Context) (int64, error) {
	var count int64
	if err := c.getJSON(ctx, "get history count", historyCountPath, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetBugCount retrieves the number of bugs found so far
func (c *DashboardClient) GetBugCount(ctx context.Context) (int64, error) {
	var count int64
	if err := c.getJSON(ctx, "get bug count", bugCountPath, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// StartRun queues a new run. The params are sent as a flat JSON object.
func (c *DashboardClient) StartRun(ctx context.Context, params model.RunParams) error {
	return c.postJSON(ctx, "start run", runPath, params, nil)
}

// ListBugs retrieves every recorded bug
func (c *DashboardClient) ListBugs(ctx context.Context) ([]model.Bug, error) {
	var bugs []model.Bug
	if err := c.getJSON(ctx, "list bugs", bugListPath, &bugs); err != nil {
		return nil, err
	}
	return bugs, nil
}

// ListRuns retrieves finished, running and queued runs
func (c *DashboardClient) ListRuns(ctx context.Context) ([]model.Run, error) {
	var runs []model.Run
	if err := c.getJSON(ctx, "list runs", runListPath, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// DownloadBug downloads the archive of a bug
func (c *DashboardClient) DownloadBug(ctx context.Context, bugID string) (*model.Artifact, error) {
	return c.getBlob(ctx, "download bug", downloadBugPath+url.PathEscape(bugID))
}

// DownloadRun downloads the archive of a run
func (c *DashboardClient) DownloadRun(ctx context.Context, runID string) (*model.Artifact, error) {
	return c.getBlob(ctx, "download run", downloadRunPath+url.PathEscape(runID))
}

// DownloadBugDot downloads the conflict graph of a bug in DOT format
func (c *DashboardClient) DownloadBugDot(ctx context.Context, bugID string) (*model.Artifact, error) {
	return c.getBlob(ctx, "download bug dot", downloadDotPath+url.PathEscape(bugID))
}

// GetBugGraph retrieves the conflict graph of a bug
func (c *DashboardClient) GetBugGraph(ctx context.Context, bugID string) (*model.BugGraph, error) {
	var graph model.BugGraph
	if err := c.getJSON(ctx, "get bug graph", viewPath+url.PathEscape(bugID), &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

// GetCurrentLog retrieves the output of the run in progress
func (c *DashboardClient) GetCurrentLog(ctx context.Context) (string, error) {
	var log string
	if err := c.getJSON(ctx, "get current log", currentLogPath, &log); err != nil {
		return "", err
	}
	return log, nil
}

// SetBugTag replaces the tag of a bug
func (c *DashboardClient) SetBugTag(ctx context.Context, bugID, tagName, tagType string) error {
	body := model.TagRequest{
		BugID:   bugID,
		TagName: tagName,
		TagType: tagType,
	}
	return c.postJSON(ctx, "set bug tag", bugTagPath, body, nil)
}

// GetRunProfile retrieves the checker profile of a run. It returns nil when
// the run has no profile.
func (c *DashboardClient) GetRunProfile(ctx context.Context, runID string) (*model.RunProfile, error) {
	var profile *model.RunProfile
	if err := c.getJSON(ctx, "get run profile", runProfilePath+url.PathEscape(runID), &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetRuntimeInfo retrieves CPU and memory samples of a run. It returns nil
// when none were recorded.
func (c *DashboardClient) GetRuntimeInfo(ctx context.Context, runID string) (*model.RuntimeInfo, error) {
	var info *model.RuntimeInfo
	if err := c.getJSON(ctx, "get runtime info", runtimeInfoPath+url.PathEscape(runID), &info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetCurrentRunID returns the id of the run in progress and false when
// nothing is running
func (c *DashboardClient) GetCurrentRunID(ctx context.Context) (model.ID, bool, error) {
	var id model.ID
	if err := c.getJSON(ctx, "get current run id", currentRunIDPath, &id); err != nil {
		return "", false, err
	}
	return id, id != "", nil
}

// GetCurrentRuntimeInfo retrieves runtime samples of the run in progress.
// The backend answers with an empty string when there are none.
func (c *DashboardClient) GetCurrentRuntimeInfo(ctx context.Context) (*model.RuntimeInfo, error) {
	const op = "get current runtime info"

	var raw json.RawMessage
	if err := c.getJSON(ctx, op, currentRuntimeInfoPath, &raw); err != nil {
		return nil, err
	}
	if !isObject(raw) {
		return nil, nil
	}

	var info model.RuntimeInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, decodeError(op, err)
	}
	return &info, nil
}

// GetCurrentProfile retrieves the checker profile of the run in progress.
// It returns nil when no profile has been written yet.
func (c *DashboardClient) GetCurrentProfile(ctx context.Context) (*model.RunProfile, error) {
	const op = "get current profile"

	var raw json.RawMessage
	if err := c.getJSON(ctx, op, currentProfilePath, &raw); err != nil {
		return nil, err
	}
	if !isObject(raw) {
		return nil, nil
	}

	var profile model.RunProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, decodeError(op, err)
	}
	if profile.Name == "" && len(profile.Series) == 0 {
		return nil, nil
	}
	return &profile, nil
}

// UploadHistory uploads a user supplied history file for checking
func (c *DashboardClient) UploadHistory(ctx context.Context, filename string, content io.Reader) (result *model.UploadResult, err error) {
	const op = "upload history"

	// Prepare the multipart form data
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	start := time.Now()
	defer func() { c.record(op, start, err) }()

	resp, err := c.send(ctx, op, http.MethodPost, uploadPath, body, writer.FormDataContentType(), contentTypeJSON)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var uploaded model.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		c.logger.Error("Failed to decode upload response", zap.Error(err))
		return nil, decodeError(op, err)
	}
	return &uploaded, nil
}

// StopRun asks the backend to stop the run in progress
func (c *DashboardClient) StopRun(ctx context.Context) (err error) {
	const op = "stop run"
	start := time.Now()
	defer func() { c.record(op, start, err) }()

	resp, err := c.send(ctx, op, http.MethodPut, stopPath, nil, "", contentTypeJSON)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// getJSON sends a GET request and decodes the JSON response into dst
func (c *DashboardClient) getJSON(ctx context.Context, op, path string, dst any) (err error) {
	start := time.Now()
	defer func() { c.record(op, start, err) }()

	resp, err := c.send(ctx, op, http.MethodGet, path, nil, "", contentTypeJSON)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		c.logger.Error("Failed to decode response",
			zap.String("operation", op),
			zap.Error(err))
		return decodeError(op, err)
	}
	return nil
}

// postJSON sends payload as a JSON body and decodes the response into dst
// when dst is not nil
func (c *DashboardClient) postJSON(ctx context.Context, op, path string, payload, dst any) (err error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("Failed to marshal request", zap.String("operation", op), zap.Error(err))
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}

	start := time.Now()
	defer func() { c.record(op, start, err) }()

	resp, err := c.send(ctx, op, http.MethodPost, path, bytes.NewReader(payloadBytes), contentTypeJSON, contentTypeJSON)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return decodeError(op, err)
	}
	return nil
}

// getBlob sends a GET request expecting a binary body and returns it
// without parsing
func (c *DashboardClient) getBlob(ctx context.Context, op, path string) (artifact *model.Artifact, err error) {
	start := time.Now()
	defer func() { c.record(op, start, err) }()

	resp, err := c.send(ctx, op, http.MethodGet, path, nil, "", contentTypeBinary)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read artifact", zap.String("operation", op), zap.Error(err))
		return nil, transportError(op, err)
	}

	return &model.Artifact{
		Filename:    attachmentName(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// send issues exactly one request. A non-2xx response is closed and turned
// into an *Error; on success the caller owns the response body. Outcomes
// are recorded by the caller once the body has been handled.
func (c *DashboardClient) send(ctx context.Context, op, method, path string, body io.Reader, contentType, accept string) (*http.Response, error) {
	start := time.Now()
	target := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}

	// Add headers
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("Sending request",
		zap.String("operation", op),
		zap.String("method", method),
		zap.String("url", target))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		clientErr := transportError(op, err)
		c.logger.Error("Failed to send request",
			zap.String("operation", op),
			zap.String("kind", clientErr.Kind.String()),
			zap.Error(err))
		return nil, clientErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		clientErr := statusError(op, resp.StatusCode, readErrorMessage(resp.Body))
		c.logger.Error("Backend returned unexpected status",
			zap.String("operation", op),
			zap.Int("status_code", resp.StatusCode))
		return nil, clientErr
	}

	c.logger.Debug("Received response",
		zap.String("operation", op),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))
	return resp, nil
}

// record reports the final outcome of a call. Errors raised before a
// request is sent carry no Kind and are not reported.
func (c *DashboardClient) record(op string, start time.Time, err error) {
	if c.observer == nil {
		return
	}
	outcome := "success"
	if err != nil {
		var clientErr *Error
		if !errors.As(err, &clientErr) {
			return
		}
		outcome = clientErr.Kind.String()
	}
	c.observer.Observe(op, outcome, time.Since(start))
}

// readErrorMessage extracts FastAPI's {"detail": ...} or falls back to the
// raw body
func readErrorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var detail struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(data, &detail) == nil && detail.Detail != nil {
		if s, ok := detail.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(detail.Detail); err == nil {
			return string(b)
		}
	}
	return strings.TrimSpace(string(data))
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
