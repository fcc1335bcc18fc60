package mockbackend

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/auth"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/client"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/metrics"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newBackend starts the router on a test server and returns a client for it
func newBackend(t *testing.T, store *Store, cfg RouterConfig, opts ...client.Option) *client.DashboardClient {
	t.Helper()
	logger := zaptest.NewLogger(t)
	server := httptest.NewServer(NewRouter(store, cfg, logger))
	t.Cleanup(server.Close)
	opts = append([]client.Option{client.WithHTTPClient(server.Client())}, opts...)
	return client.NewDashboardClient(server.URL, logger, opts...)
}

func TestRouter_Counts(t *testing.T) {
	c := newBackend(t, newSeededStore(t), RouterConfig{})
	ctx := context.Background()

	histories, err := c.GetHistoryCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	bugs, err := c.GetBugCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if histories != 150 || bugs != 3 {
		t.Errorf("counts = %d/%d, want 150/3", histories, bugs)
	}
}

func TestRouter_BugFlow(t *testing.T) {
	store := newSeededStore(t)
	c := newBackend(t, store, RouterConfig{})
	ctx := context.Background()

	bugs, err := c.ListBugs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(store.Bugs(), bugs); diff != "" {
		t.Errorf("bug list mismatch (-want +got):\n%s", diff)
	}

	graph, err := c.GetBugGraph(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if got := len(graph.CycleEdges()); got != 2 {
		t.Errorf("expected 2 cycle edges, got %d", got)
	}

	if err := c.SetBugTag(ctx, "1", "confirmed", "bug"); err != nil {
		t.Fatal(err)
	}
	bug, _ := store.Bug("1")
	if bug.TagName != "confirmed" || bug.TagType != "bug" {
		t.Errorf("tag not stored: %+v", bug.Tag())
	}

	dot, err := c.DownloadBugDot(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if dot.Filename != "conflict.dot" || !strings.HasPrefix(string(dot.Data), "digraph") {
		t.Errorf("unexpected dot artifact %q: %q", dot.Filename, dot.Data)
	}
}

func TestRouter_DownloadArchive(t *testing.T) {
	c := newBackend(t, newSeededStore(t), RouterConfig{})

	artifact, err := c.DownloadBug(context.Background(), "2")
	if err != nil {
		t.Fatal(err)
	}
	if artifact.Filename != "download.zip" || artifact.ContentType != "application/zip" {
		t.Errorf("unexpected artifact header: %q %q", artifact.Filename, artifact.ContentType)
	}

	zr, err := zip.NewReader(bytes.NewReader(artifact.Data), int64(len(artifact.Data)))
	if err != nil {
		t.Fatalf("artifact is not a zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"bug_hist.txt", "conflict.dot"}, names); diff != "" {
		t.Errorf("archive entries mismatch (-want +got):\n%s", diff)
	}
}

func TestRouter_NotFound(t *testing.T) {
	c := newBackend(t, newSeededStore(t), RouterConfig{})
	ctx := context.Background()

	_, err := c.GetBugGraph(ctx, "404")
	if !client.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "bug 404") {
		t.Errorf("error should carry the backend detail: %v", err)
	}

	if _, err := c.DownloadRun(ctx, "404"); !client.IsNotFound(err) {
		t.Errorf("DownloadRun: expected not found, got %v", err)
	}
	if err := c.SetBugTag(ctx, "404", "x", "y"); !client.IsNotFound(err) {
		t.Errorf("SetBugTag: expected not found, got %v", err)
	}

	profile, err := c.GetRunProfile(ctx, "404")
	if err != nil || profile != nil {
		t.Errorf("GetRunProfile(404) = %v, %v; want nil, nil", profile, err)
	}
}

func TestRouter_RunFlow(t *testing.T) {
	store := newSeededStore(t)
	c := newBackend(t, store, RouterConfig{})
	ctx := context.Background()

	if _, running, err := c.GetCurrentRunID(ctx); err != nil || running {
		t.Fatalf("GetCurrentRunID() running=%v err=%v, want idle", running, err)
	}
	if info, err := c.GetCurrentRuntimeInfo(ctx); err != nil || info != nil {
		t.Fatalf("GetCurrentRuntimeInfo() = %v, %v; want nil, nil", info, err)
	}

	params := model.RunParams{
		DBType:          "postgresql",
		WorkloadHistory: model.Ptr(2),
		Extra:           map[string]any{"db_port": 5432},
	}
	if err := c.StartRun(ctx, params); err != nil {
		t.Fatal(err)
	}
	runs, err := c.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last := runs[len(runs)-1]; last.Status != model.RunStatusPending || last.DBType != "postgresql" {
		t.Errorf("expected queued postgresql run, got %+v", last)
	}

	store.Step()
	store.Step()

	id, running, err := c.GetCurrentRunID(ctx)
	if err != nil || !running || id != "3" {
		t.Fatalf("GetCurrentRunID() = %q, %v, %v; want 3, true, nil", id, running, err)
	}
	log, err := c.GetCurrentLog(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(log, "checked history 1 of 2") {
		t.Errorf("unexpected log %q", log)
	}
	info, err := c.GetCurrentRuntimeInfo(ctx)
	if err != nil || info == nil || len(info.XAxis) != 1 {
		t.Errorf("GetCurrentRuntimeInfo() = %+v, %v", info, err)
	}
	if profile, err := c.GetCurrentProfile(ctx); err != nil || profile != nil {
		t.Errorf("GetCurrentProfile() = %+v, %v; want nil, nil", profile, err)
	}

	if err := c.StopRun(ctx); err != nil {
		t.Fatal(err)
	}
	if _, running, _ := c.GetCurrentRunID(ctx); running {
		t.Error("expected idle backend after stop")
	}
}

func TestRouter_StartRunRejectsNonObject(t *testing.T) {
	router := NewRouter(NewStore(), RouterConfig{}, zaptest.NewLogger(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(`[1,2]`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestRouter_Upload(t *testing.T) {
	store := NewStore()
	c := newBackend(t, store, RouterConfig{})

	result, err := c.UploadHistory(context.Background(), "history.txt", strings.NewReader("t1: w(x,1)\n"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Message != "Upload succeeded!" {
		t.Errorf("unexpected upload result %+v", result)
	}
	data, ok := store.Upload("history.txt")
	if !ok || string(data) != "t1: w(x,1)\n" {
		t.Errorf("upload not stored: %q %v", data, ok)
	}
}

func TestRouter_ServiceAuth(t *testing.T) {
	store := newSeededStore(t)
	cfg := RouterConfig{TokenSecret: "s3cret"}

	anonymous := newBackend(t, store, cfg)
	if _, err := anonymous.GetBugCount(context.Background()); client.KindOf(err) != client.KindClient {
		t.Errorf("expected client error without token, got %v", err)
	}

	token, err := auth.NewServiceToken("s3cret", "dashctl", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	authed := newBackend(t, store, cfg, client.WithBearerToken(token))
	if _, err := authed.GetBugCount(context.Background()); err != nil {
		t.Errorf("expected success with token, got %v", err)
	}
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics, err := metrics.NewHTTPMetrics("test", reg)
	if err != nil {
		t.Fatal(err)
	}
	router := NewRouter(newSeededStore(t), RouterConfig{Metrics: httpMetrics, Gatherer: reg}, zaptest.NewLogger(t))

	for _, path := range []string{"/bug_count", "/view/404"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `route="/view/:bug_id"`) {
		t.Errorf("expected route label in exposition:\n%s", w.Body.String())
	}
	if got := testutil.CollectAndCount(reg, "test_http_requests_total"); got < 2 {
		t.Errorf("expected at least 2 series, got %d", got)
	}
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, int, int64, error) {
	return false, 0, time.Now().Unix() + 60, nil
}

func TestRouter_RateLimit(t *testing.T) {
	c := newBackend(t, newSeededStore(t), RouterConfig{Limiter: denyAll{}, RateLimit: 1})

	_, err := c.GetBugCount(context.Background())
	if client.StatusCode(err) != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
}
