package autopick

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/bolao/internal/common"
	"serotonyl.ru/bolao/internal/features/boosters"
	"serotonyl.ru/bolao/internal/features/matches"
	"serotonyl.ru/bolao/internal/features/notifications"
)

var testNow = time.Date(2026, 6, 14, 18, 0, 0, 0, time.UTC)

// fakeDB — матчи, прогнозы, участники, активации и расходы в памяти.
type fakeDB struct {
	mu          sync.Mutex
	matches     []*matches.Match
	predictions []*matches.Prediction
	members     map[string][]string
	catalog     map[string]*boosters.CatalogEntry
	activations []*boosters.Activation
	usages      []*boosters.Usage
	purchased   map[string]int64
	errs        map[string]error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		members: map[string][]string{},
		catalog:   map[string]*boosters.CatalogEntry{},
		purchased: map[string]int64{},
		errs:      map[string]error{},
	}
}

func (f *fakeDB) setErr(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeDB) takeErr(op string) error {
	err := f.errs[op]
	delete(f.errs, op)
	return err
}

func (f *fakeDB) addMatch(id, poolID string, start time.Time) {
	f.matches = append(f.matches, &matches.Match{
		ID: id, PoolID: poolID, HomeTeam: "Brasil", AwayTeam: "Argentina",
		StartTime: start, Status: matches.MatchStatusScheduled,
	})
}

// grant начисляет пользователю n единиц автопрогноза.
func (f *fakeDB) grant(userID string, n int64) {
	f.purchased[userID] += n
}

func (f *fakeDB) available(userID string) int64 {
	n := f.purchased[userID]
	for _, u := range f.usages {
		if u.UserID == userID && u.BoosterID == "auto_pick" && u.Status.CountsAgainstInventory() {
			n--
		}
	}
	return n
}

func (f *fakeDB) activate(userID string, poolID *string, expiresAt *time.Time) {
	f.activations = append(f.activations, &boosters.Activation{
		ID: "act-" + userID, UserID: userID, BoosterID: "auto_pick", PoolID: poolID,
		Scope: boosters.ScopeGlobal, Status: boosters.ActivationActive, ExpiresAt: expiresAt,
	})
}

func (f *fakeDB) ListScheduledBetween(_ context.Context, from, to time.Time) ([]*matches.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr("ListScheduledBetween"); err != nil {
		return nil, err
	}
	var out []*matches.Match
	for _, m := range f.matches {
		if m.Status == matches.MatchStatusScheduled && m.StartTime.After(from) && !m.StartTime.After(to) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeDB) ListActivePredictions(_ context.Context, matchIDs, userIDs []string) ([]*matches.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr("ListActivePredictions"); err != nil {
		return nil, err
	}
	var out []*matches.Prediction
	for _, p := range f.predictions {
		if p.Status == matches.PredictionStatusActive && contains(matchIDs, p.MatchID) && contains(userIDs, p.UserID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// InsertPredictions повторяет ON CONFLICT DO NOTHING по active-прогнозу.
func (f *fakeDB) InsertPredictions(_ context.Context, preds []*matches.Prediction) ([]*matches.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr("InsertPredictions"); err != nil {
		return nil, err
	}
	var inserted []*matches.Prediction
	for _, p := range preds {
		conflict := false
		for _, e := range f.predictions {
			if e.MatchID == p.MatchID && e.UserID == p.UserID && e.Status == matches.PredictionStatusActive {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		f.predictions = append(f.predictions, p)
		inserted = append(inserted, p)
	}
	return inserted, nil
}

func (f *fakeDB) UserIDs(_ context.Context, poolID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr("UserIDs"); err != nil {
		return nil, err
	}
	return f.members[poolID], nil
}

func (f *fakeDB) CatalogEntry(_ context.Context, boosterID string) (*boosters.CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.catalog[boosterID]
	if !ok {
		return nil, common.ErrCatalogMissing
	}
	return c, nil
}

func (f *fakeDB) ListActiveActivations(_ context.Context, boosterID string, userIDs []string) ([]*boosters.Activation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr("ListActiveActivations"); err != nil {
		return nil, err
	}
	var out []*boosters.Activation
	for _, a := range f.activations {
		if a.BoosterID == boosterID && a.Status == boosters.ActivationActive && contains(userIDs, a.UserID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeDB) Available(_ context.Context, userID, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr("Available"); err != nil {
		return 0, err
	}
	return f.available(userID), nil
}

func (f *fakeDB) ConsumeUsage(_ context.Context, u *boosters.Usage) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr("ConsumeUsage"); err != nil {
		return false, err
	}
	if f.available(u.UserID) <= 0 {
		return false, nil
	}
	f.usages = append(f.usages, u)
	return true, nil
}

func (f *fakeDB) predictionsFor(matchID string) map[string]*matches.Prediction {
	out := map[string]*matches.Prediction{}
	for _, p := range f.predictions {
		if p.MatchID == matchID {
			out[p.UserID] = p
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type noopNotifier struct{ count int }

func (n *noopNotifier) Notify(context.Context, notifications.Notification) { n.count++ }

func newTestService(db *fakeDB) *Service {
	return NewService(db, db, db, &noopNotifier{}, common.FixedClock{T: testNow}, Options{})
}

func TestRunPicksForEligibleMembers(t *testing.T) {
	db := newFakeDB()
	db.catalog["auto_pick"] = &boosters.CatalogEntry{
		ID: "auto_pick", DefaultDurationDays: 7,
		Metadata: json.RawMessage(`{"default_prediction":{"home":1,"away":1}}`),
	}
	db.addMatch("m1", "pool-1", testNow.Add(30*time.Minute))
	db.members["pool-1"] = []string{"alice", "bob", "carol", "dave", "erin"}
	for _, u := range db.members["pool-1"] {
		db.grant(u, 1)
	}

	other := "pool-2"
	own := "pool-1"
	future := testNow.Add(24 * time.Hour)
	past := testNow.Add(-time.Minute)
	db.activate("alice", nil, &future) // глобальная
	db.activate("bob", &own, nil)      // на этот пул, бессрочная
	db.activate("carol", &other, &future)
	db.activate("dave", nil, &past) // истекла
	db.activate("erin", nil, &future)
	db.predictions = append(db.predictions, &matches.Prediction{
		ID: "p-erin", MatchID: "m1", UserID: "erin", HomePred: 3, AwayPred: 0,
		Status: matches.PredictionStatusActive, Source: matches.PredictionSourceManual,
	})

	res, err := newTestService(db).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &RunResult{MatchesScanned: 1, PredictionsCreated: 2, UsagesRecorded: 2}, res)

	preds := db.predictionsFor("m1")
	require.Contains(t, preds, "alice")
	require.Contains(t, preds, "bob")
	assert.NotContains(t, preds, "carol")
	assert.NotContains(t, preds, "dave")
	assert.Equal(t, matches.PredictionSourceManual, preds["erin"].Source)

	p := preds["alice"]
	assert.Equal(t, 1, p.HomePred)
	assert.Equal(t, 1, p.AwayPred)
	assert.Equal(t, 0, p.Outcome)
	assert.Equal(t, matches.PredictionSourceAutoPick, p.Source)
	assert.NotEmpty(t, p.ID)

	require.Len(t, db.usages, 2)
	for _, u := range db.usages {
		assert.Equal(t, boosters.UsageConsumed, u.Status)
		require.NotNil(t, u.MatchID)
		assert.Equal(t, "m1", *u.MatchID)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := newFakeDB()
	db.addMatch("m1", "pool-1", testNow.Add(10*time.Minute))
	db.members["pool-1"] = []string{"alice"}
	db.activate("alice", nil, nil)
	db.grant("alice", 5)
	svc := newTestService(db)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.PredictionsCreated)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.PredictionsCreated)
	assert.Len(t, db.predictions, 1)
	assert.Len(t, db.usages, 1)
}

func TestRunFallbackScoreWithoutCatalog(t *testing.T) {
	db := newFakeDB()
	db.addMatch("m1", "pool-1", testNow.Add(time.Hour))
	db.members["pool-1"] = []string{"alice"}
	db.activate("alice", nil, nil)
	db.grant("alice", 1)

	_, err := newTestService(db).Run(context.Background())
	require.NoError(t, err)

	p := db.predictionsFor("m1")["alice"]
	require.NotNil(t, p)
	assert.Equal(t, 2, p.HomePred)
	assert.Equal(t, 0, p.AwayPred)
	assert.Equal(t, 1, p.Outcome)
}

func TestRunSkipsMembersWithoutInventory(t *testing.T) {
	db := newFakeDB()
	db.addMatch("m1", "pool-1", testNow.Add(10*time.Minute))
	db.members["pool-1"] = []string{"alice", "bob"}
	db.activate("alice", nil, nil)
	db.activate("bob", nil, nil)
	// Единица alice уже потрачена на активацию
	db.grant("alice", 1)
	db.usages = append(db.usages, &boosters.Usage{
		ID: "use-act", UserID: "alice", BoosterID: "auto_pick", Status: boosters.UsageActive,
	})
	db.grant("bob", 1)

	res, err := newTestService(db).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &RunResult{MatchesScanned: 1, PredictionsCreated: 1, UsagesRecorded: 1}, res)
	assert.NotContains(t, db.predictionsFor("m1"), "alice")
	assert.Contains(t, db.predictionsFor("m1"), "bob")
	assert.Equal(t, int64(0), db.available("alice"))
	assert.Equal(t, int64(0), db.available("bob"))
}

func TestRunNeverDrivesInventoryNegative(t *testing.T) {
	db := newFakeDB()
	db.addMatch("m1", "pool-1", testNow.Add(10*time.Minute))
	db.addMatch("m2", "pool-1", testNow.Add(20*time.Minute))
	db.members["pool-1"] = []string{"alice"}
	db.activate("alice", nil, nil)
	db.grant("alice", 1)

	res, err := newTestService(db).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &RunResult{MatchesScanned: 2, PredictionsCreated: 1, UsagesRecorded: 1}, res)
	assert.Contains(t, db.predictionsFor("m1"), "alice")
	assert.Empty(t, db.predictionsFor("m2"))
	assert.Equal(t, int64(0), db.available("alice"))
}

func TestRunInventoryReadFailureSkipsMember(t *testing.T) {
	db := newFakeDB()
	db.addMatch("m1", "pool-1", testNow.Add(10*time.Minute))
	db.members["pool-1"] = []string{"alice"}
	db.activate("alice", nil, nil)
	db.grant("alice", 1)
	db.setErr("Available", errors.New("timeout"))

	res, err := newTestService(db).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &RunResult{MatchesScanned: 1}, res)
	assert.Empty(t, db.predictions)
}

func TestRunSkipsMatchesOutsideWindow(t *testing.T) {
	db := newFakeDB()
	db.addMatch("started", "pool-1", testNow)
	db.addMatch("later", "pool-1", testNow.Add(61*time.Minute))
	db.members["pool-1"] = []string{"alice"}
	db.activate("alice", nil, nil)

	res, err := newTestService(db).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &RunResult{}, res)
	assert.Empty(t, db.predictions)
}

func TestWindowGuard(t *testing.T) {
	svc := newTestService(newFakeDB())

	assert.True(t, svc.inWindow(&matches.Match{StartTime: testNow.Add(60 * time.Minute)}, testNow))
	assert.True(t, svc.inWindow(&matches.Match{StartTime: testNow.Add(time.Second)}, testNow))
	assert.False(t, svc.inWindow(&matches.Match{StartTime: testNow.Add(61 * time.Minute)}, testNow))
	assert.False(t, svc.inWindow(&matches.Match{StartTime: testNow}, testNow))
}

func TestRunEmptyPool(t *testing.T) {
	db := newFakeDB()
	db.addMatch("m1", "pool-empty", testNow.Add(time.Minute))

	res, err := newTestService(db).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &RunResult{MatchesScanned: 1}, res)
}

func TestRunUsageFailureKeepsPredictions(t *testing.T) {
	db := newFakeDB()
	db.addMatch("m1", "pool-1", testNow.Add(time.Minute))
	db.members["pool-1"] = []string{"alice", "bob"}
	db.activate("alice", nil, nil)
	db.activate("bob", nil, nil)
	db.grant("alice", 1)
	db.grant("bob", 1)
	db.setErr("ConsumeUsage", errors.New("connection reset"))

	res, err := newTestService(db).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &RunResult{MatchesScanned: 1, PredictionsCreated: 2, UsagesRecorded: 1}, res)
	assert.Len(t, db.predictions, 2)
	require.Len(t, db.usages, 1)
	assert.Equal(t, "bob", db.usages[0].UserID)
}

func TestRunMatchFailureIsIsolated(t *testing.T) {
	db := newFakeDB()
	db.addMatch("m1", "pool-1", testNow.Add(time.Minute))
	db.addMatch("m2", "pool-1", testNow.Add(2*time.Minute))
	db.members["pool-1"] = []string{"alice"}
	db.activate("alice", nil, nil)
	db.grant("alice", 2)
	db.setErr("ListActivePredictions", errors.New("timeout"))

	res, err := newTestService(db).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.PredictionsCreated)
	assert.Empty(t, db.predictionsFor("m1"))
	assert.Contains(t, db.predictionsFor("m2"), "alice")
}

func TestRunScanFailure(t *testing.T) {
	db := newFakeDB()
	db.setErr("ListScheduledBetween", errors.New("connection refused"))

	res, err := newTestService(db).Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestHandleRun(t *testing.T) {
	db := newFakeDB()
	db.addMatch("m1", "pool-1", testNow.Add(time.Minute))
	db.members["pool-1"] = []string{"alice"}
	db.activate("alice", nil, nil)
	db.grant("alice", 1)
	h := NewHandler(newTestService(db))

	rec := httptest.NewRecorder()
	h.HandleRun(rec, httptest.NewRequest(http.MethodPost, "/jobs/auto-pick", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"matchesScanned":1,"predictionsCreated":1,"usagesRecorded":1}`, rec.Body.String())
}
