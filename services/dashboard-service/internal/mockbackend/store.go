package mockbackend

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

// ErrNotFound is returned for unknown bug or run ids
var ErrNotFound = errors.New("not found")

type bugRecord struct {
	bug   model.Bug
	graph model.BugGraph
	dot   string
	files map[string]string
}

type runRecord struct {
	run     model.Run
	profile *model.RunProfile
	runtime *model.RuntimeInfo
	files   map[string]string
}

type activeRun struct {
	params  model.RunParams
	total   int
	done    int
	log     strings.Builder
	runtime model.RuntimeInfo
	started time.Time
}

// Store keeps the state of the fake backend in memory
type Store struct {
	mu           sync.RWMutex
	bugs         map[string]*bugRecord
	bugOrder     []string
	runs         map[string]*runRecord
	runOrder     []string
	queue        []model.RunParams
	current      *activeRun
	historyCount int64
	bugCount     int64
	uploads      map[string][]byte
	now          func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		bugs:    make(map[string]*bugRecord),
		runs:    make(map[string]*runRecord),
		uploads: make(map[string][]byte),
		now:     time.Now,
	}
}

// HistoryCount returns the number of histories checked by finished runs
func (s *Store) HistoryCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyCount
}

// BugCount returns the number of bugs found by finished runs
func (s *Store) BugCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bugCount
}

// Bugs returns all bugs ordered by id
func (s *Store) Bugs() []model.Bug {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bugs := make([]model.Bug, 0, len(s.bugOrder))
	for _, id := range s.bugOrder {
		bugs = append(bugs, s.bugs[id].bug)
	}
	return bugs
}

// Bug returns a single bug
func (s *Store) Bug(id string) (model.Bug, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.bugs[id]
	if !ok {
		return model.Bug{}, fmt.Errorf("bug %s: %w", id, ErrNotFound)
	}
	return rec.bug, nil
}

// BugGraph returns the conflict graph of a bug
func (s *Store) BugGraph(id string) (model.BugGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.bugs[id]
	if !ok {
		return model.BugGraph{}, fmt.Errorf("bug %s: %w", id, ErrNotFound)
	}
	return rec.graph, nil
}

// BugDot returns the DOT source of a bug's conflict graph
func (s *Store) BugDot(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.bugs[id]
	if !ok {
		return "", fmt.Errorf("bug %s: %w", id, ErrNotFound)
	}
	return rec.dot, nil
}

// BugFiles returns the files archived for a bug
func (s *Store) BugFiles(id string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.bugs[id]
	if !ok {
		return nil, fmt.Errorf("bug %s: %w", id, ErrNotFound)
	}
	return copyFiles(rec.files), nil
}

// SetTag replaces a bug's tag; the last write wins
func (s *Store) SetTag(id, name, tagType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.bugs[id]
	if !ok {
		return fmt.Errorf("bug %s: %w", id, ErrNotFound)
	}
	rec.bug.TagName = name
	rec.bug.TagType = tagType
	return nil
}

// Runs returns finished runs followed by the running and queued ones, which
// get the ids they will have once finished
func (s *Store) Runs() []model.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.Run, 0, len(s.runOrder)+len(s.queue)+1)
	for _, id := range s.runOrder {
		runs = append(runs, s.runs[id].run)
	}

	next := s.nextRunID()
	if s.current != nil {
		run := pendingRun(s.current.params, s.current.started)
		run.RunID = model.ID(strconv.Itoa(next))
		run.Status = model.RunStatusRunning
		run.Percentage = s.current.percentage()
		runs = append(runs, run)
		next++
	}
	for _, params := range s.queue {
		run := pendingRun(params, s.now())
		run.RunID = model.ID(strconv.Itoa(next))
		runs = append(runs, run)
		next++
	}
	return runs
}

// RunFiles returns the files archived for a finished run
func (s *Store) RunFiles(id string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return copyFiles(rec.files), nil
}

// RunProfile returns the profile of a finished run, nil if it has none
func (s *Store) RunProfile(id string) *model.RunProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.runs[id]; ok {
		return rec.profile
	}
	return nil
}

// RuntimeInfo returns the runtime samples of a finished run, nil if none
func (s *Store) RuntimeInfo(id string) *model.RuntimeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.runs[id]; ok {
		return rec.runtime
	}
	return nil
}

// Enqueue queues a run
func (s *Store) Enqueue(params model.RunParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, params)
}

// CurrentRunID returns the id the running run will get, false when idle
func (s *Store) CurrentRunID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return "", false
	}
	return strconv.Itoa(s.nextRunID()), true
}

// CurrentLog returns the output of the running run
func (s *Store) CurrentLog() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return ""
	}
	return s.current.log.String()
}

// CurrentRuntimeInfo returns the samples of the running run
func (s *Store) CurrentRuntimeInfo() *model.RuntimeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil || len(s.current.runtime.XAxis) == 0 {
		return nil
	}
	info := model.RuntimeInfo{
		XAxis:  append([]float64(nil), s.current.runtime.XAxis...),
		CPU:    append([]float64(nil), s.current.runtime.CPU...),
		Memory: append([]float64(nil), s.current.runtime.Memory...),
	}
	return &info
}

// SaveUpload stores an uploaded history file
func (s *Store) SaveUpload(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[name] = data
}

// Upload returns a previously uploaded file
func (s *Store) Upload(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.uploads[name]
	return data, ok
}

// Stop aborts the running run without recording it
func (s *Store) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped := s.current != nil
	s.current = nil
	return stopped
}

// Step advances the simulated checker by one history. It starts the next
// queued run when idle and records the run once all histories are checked.
func (s *Store) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		if len(s.queue) == 0 {
			return
		}
		params := s.queue[0]
		s.queue = s.queue[1:]
		total := params.Histories()
		if total <= 0 {
			total = 10
		}
		s.current = &activeRun{params: params, total: total, started: s.now()}
		s.current.log.WriteString("start running\n")
		return
	}

	cur := s.current
	cur.done++
	fmt.Fprintf(&cur.log, "checked history %d of %d\n", cur.done, cur.total)
	sample := float64(len(cur.runtime.XAxis))
	cur.runtime.XAxis = append(cur.runtime.XAxis, sample)
	cur.runtime.CPU = append(cur.runtime.CPU, 0.25+0.05*float64(cur.done%5))
	cur.runtime.Memory = append(cur.runtime.Memory, 256+8*float64(cur.done))

	if cur.done < cur.total {
		return
	}

	run := pendingRun(cur.params, cur.started)
	run.RunID = model.ID(strconv.Itoa(s.nextRunID()))
	run.Status = model.RunStatusFinished
	run.Percentage = 100
	run.HistCount = model.FlexInt(cur.total)
	runtime := cur.runtime
	s.addRun(run, nil, &runtime, map[string]string{"output.log": cur.log.String()})
	s.historyCount += int64(cur.total)
	s.current = nil
}

// nextRunID is one above the largest numeric run id. The lock must be held.
func (s *Store) nextRunID() int {
	next := 1
	for id := range s.runs {
		if n, err := strconv.Atoi(id); err == nil && n >= next {
			next = n + 1
		}
	}
	return next
}

// addRun must be called with the lock held
func (s *Store) addRun(run model.Run, profile *model.RunProfile, runtime *model.RuntimeInfo, files map[string]string) {
	id := run.RunID.String()
	s.runs[id] = &runRecord{run: run, profile: profile, runtime: runtime, files: files}
	s.runOrder = append(s.runOrder, id)
}

// addBug must be called with the lock held
func (s *Store) addBug(rec *bugRecord) {
	id := rec.bug.BugID.String()
	s.bugs[id] = rec
	s.bugOrder = append(s.bugOrder, id)
}

func (a *activeRun) percentage() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.done) / float64(a.total) * 100
}

func pendingRun(params model.RunParams, at time.Time) model.Run {
	return model.Run{
		DBType:           params.DBType,
		DBIsolation:      params.DBIsolation,
		CheckerIsolation: params.CheckerIsolation,
		Timestamp:        at.UnixMilli(),
		HistCount:        model.FlexInt(params.Histories()),
		Status:           model.RunStatusPending,
	}
}

func copyFiles(files map[string]string) map[string]string {
	out := make(map[string]string, len(files))
	for k, v := range files {
		out[k] = v
	}
	return out
}
