//nolint:funlen // ok for tests
package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/strategy-engine-go/pkg/model"
	"github.com/pitwall/strategy-engine-go/pkg/processing"
)

func testConfig() *model.SessionConfig {
	cfg := model.DefaultSessionConfig()
	cfg.Name = "test session"
	cfg.RaceLaps = 30
	cfg.TankCapacity = 60
	return cfg
}

func TestSessionLookup_AddAndGet(t *testing.T) {
	sl := NewSessionLookup()
	defer sl.Close()

	spd, err := sl.AddSession("quali", testConfig())
	require.NoError(t, err)
	assert.Equal(t, "quali", spd.Session.Key)
	assert.NotEmpty(t, spd.Session.ID)
	assert.Equal(t, "test session", spd.Session.Name)

	got, err := sl.GetSession("quali")
	require.NoError(t, err)
	assert.Same(t, spd, got)

	_, err = sl.GetSession("unknown")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestSessionLookup_GeneratedKey(t *testing.T) {
	sl := NewSessionLookup()
	defer sl.Close()

	spd, err := sl.AddSession("", testConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, spd.Session.Key)
	assert.Equal(t, spd.Session.ID, spd.Session.Key)
}

func TestSessionLookup_DuplicateKey(t *testing.T) {
	sl := NewSessionLookup()
	defer sl.Close()

	_, err := sl.AddSession("race", testConfig())
	require.NoError(t, err)
	_, err = sl.AddSession("race", testConfig())
	assert.True(t, errors.Is(err, ErrSessionExists))
}

func TestSessionLookup_InvalidConfigRejected(t *testing.T) {
	sl := NewSessionLookup()
	defer sl.Close()

	cfg := testConfig()
	cfg.RaceLaps = 0
	_, err := sl.AddSession("race", cfg)
	assert.True(t, errors.Is(err, processing.ErrInvalidConfiguration))
	_, err = sl.GetSession("race")
	assert.Error(t, err)
}

func TestSessionLookup_Remove(t *testing.T) {
	sl := NewSessionLookup()
	defer sl.Close()

	_, err := sl.AddSession("race", testConfig())
	require.NoError(t, err)
	sl.RemoveSession("race")
	_, err = sl.GetSession("race")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	// removing twice is a no-op
	sl.RemoveSession("race")
}

func TestSessionLookup_GetSessions(t *testing.T) {
	sl := NewSessionLookup()
	defer sl.Close()

	_, err := sl.AddSession("one", testConfig())
	require.NoError(t, err)
	_, err = sl.AddSession("two", testConfig())
	require.NoError(t, err)

	infos := sl.GetSessions()
	assert.Len(t, infos, 2)
	keys := map[string]bool{}
	for _, info := range infos {
		keys[info.Key] = true
	}
	assert.True(t, keys["one"] && keys["two"])
}

func TestSessionProcessingData_MarkData(t *testing.T) {
	sl := NewSessionLookup()
	defer sl.Close()

	spd, err := sl.AddSession("race", testConfig())
	require.NoError(t, err)
	before := spd.Info().LastDataAt
	time.Sleep(5 * time.Millisecond)
	spd.MarkData()
	assert.True(t, spd.Info().LastDataAt.After(before))
}

func TestSessionProcessingData_RecommendationFanOut(t *testing.T) {
	sl := NewSessionLookup()
	defer sl.Close()

	spd, err := sl.AddSession("race", testConfig())
	require.NoError(t, err)
	sub := spd.RecommendationBroadcast.Subscribe()
	defer spd.RecommendationBroadcast.CancelSubscription(sub)

	rec := &model.StrategyRecommendation{Action: model.ActionPush}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-done:
				return
			default:
				spd.PublishRecommendation(rec)
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()

	select {
	case got := <-sub:
		assert.Equal(t, model.ActionPush, got.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("no recommendation received")
	}
	done <- struct{}{}
}

func TestSessionLookup_StaleReaping(t *testing.T) {
	sl := NewSessionLookup(WithStaleDuration(40 * time.Millisecond))
	defer sl.Close()

	_, err := sl.AddSession("race", testConfig())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, gErr := sl.GetSession("race")
		return errors.Is(gErr, ErrSessionNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}
