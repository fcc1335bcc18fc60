package mockbackend

import (
	"fmt"
	"strconv"
	"time"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

// Seed fills the store with two finished runs and their bugs so the
// dashboard has something to show
func (s *Store) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seeds := []struct {
		dbType, dbIsolation, checkerIsolation string
		histories, bugs                       int
	}{
		{"mysql", "TRANSACTION_REPEATABLE_READ", "SNAPSHOT_ISOLATION", 100, 2},
		{"postgresql", "TRANSACTION_SERIALIZATION", "SERIALIZABLE", 50, 1},
	}

	bugID := len(s.bugOrder)
	for i, seed := range seeds {
		runID := strconv.Itoa(len(s.runOrder) + 1)
		ts := base.Add(time.Duration(i) * time.Hour).UnixMilli()
		dir := fmt.Sprintf("result/run_%d", ts)

		run := model.Run{
			RunID:            model.ID(runID),
			DBType:           seed.dbType,
			DBIsolation:      seed.dbIsolation,
			CheckerIsolation: seed.checkerIsolation,
			Timestamp:        ts,
			HistCount:        model.FlexInt(seed.histories),
			BugCount:         model.FlexInt(seed.bugs),
			DirPath:          dir,
			Status:           model.RunStatusFinished,
			Percentage:       100,
			ProfilePathList:  []string{dir + "/history-PolySI-profile.csv"},
			RuntimeInfoPath:  dir + "/runtime_info.csv",
		}
		s.addRun(run, seedProfile(), seedRuntime(), map[string]string{
			"metadata.json":     fmt.Sprintf(`{"db_type":%q,"history_count":%d,"bug_count":%d}`, seed.dbType, seed.histories, seed.bugs),
			"config.properties": fmt.Sprintf("db.type=%s\ndb.isolation=%s\nchecker.isolation=%s\n", seed.dbType, seed.dbIsolation, seed.checkerIsolation),
			"output.log":        fmt.Sprintf("checked history %d of %d\n", seed.histories, seed.histories),
		})
		s.historyCount += int64(seed.histories)

		for j := 0; j < seed.bugs; j++ {
			bugID++
			id := strconv.Itoa(bugID)
			bugDir := fmt.Sprintf("%s/bug_%d", dir, j)
			s.addBug(&bugRecord{
				bug: model.Bug{
					BugID:            model.ID(id),
					DBType:           seed.dbType,
					DBIsolation:      seed.dbIsolation,
					CheckerIsolation: seed.checkerIsolation,
					Timestamp:        ts,
					BugDir:           bugDir,
					HistPath:         bugDir + "/bug_hist.txt",
					DotPath:          bugDir + "/conflict.dot",
					ConfigPath:       dir + "/config.properties",
					MetadataPath:     dir + "/metadata.json",
					LogPath:          dir + "/output.log",
				},
				graph: seedGraph(),
				dot:   seedDot,
				files: map[string]string{
					"bug_hist.txt": "t1: w(x,1) r(y,0)\nt2: w(y,1) r(x,0)\n",
					"conflict.dot": seedDot,
				},
			})
			s.bugCount++
		}
	}
}

const seedDot = `digraph "conflict" {
"t1" [ops="[Operation(type=WRITE, key=x, value=1)]", relate_to="x", in_cycle="true"];
"t2" [ops="[Operation(type=WRITE, key=y, value=1)]", relate_to="y", in_cycle="true"];
"t1" -> "t2" [id="e1", label="RW\nx", relate_to="x", style="dashed", in_cycle="true"];
"t2" -> "t1" [id="e2", label="RW\ny", relate_to="y", style="dashed", in_cycle="true"];
}
`

func seedGraph() model.BugGraph {
	return model.BugGraph{
		Name: `"conflict"`,
		Nodes: []model.GraphNode{
			{ID: "t1", Label: "t1", Ops: "Operation(type=WRITE, key=x, value=1)", RelateTo: []string{"x"}, InCycle: "true"},
			{ID: "t2", Label: "t2", Ops: "Operation(type=WRITE, key=y, value=1)", RelateTo: []string{"y"}, InCycle: "true"},
		},
		Edges: []model.GraphEdge{
			{ID: "e1", Source: "t1", Target: "t2", Label: "RW x", RelateTo: []string{"x"}, Style: "dashed", InCycle: "true"},
			{ID: "e2", Source: "t2", Target: "t1", Label: "RW y", RelateTo: []string{"y"}, Style: "dashed", InCycle: "true"},
		},
	}
}

func seedProfile() *model.RunProfile {
	return &model.RunProfile{
		Name:  "history",
		XAxis: []float64{1, 2, 3},
		Series: []model.ProfileSeries{{
			Checker: "PolySI",
			Time:    []float64{12, 15, 11},
			Memory:  []float64{64, 70, 66},
			StageTimes: map[string][]float64{
				"construct": {3, 4, 3},
				"solve":     {9, 11, 8},
			},
		}},
	}
}

func seedRuntime() *model.RuntimeInfo {
	return &model.RuntimeInfo{
		XAxis:  []float64{0, 1, 2},
		CPU:    []float64{0.3, 0.8, 0.5},
		Memory: []float64{512, 640, 600},
	}
}
