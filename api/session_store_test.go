package api

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"city-weather/datasource"
	"city-weather/models"
	"city-weather/query"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okOutcome(city string) query.Outcome {
	return query.Outcome{
		City:     city,
		Current:  query.Result[models.CurrentConditions]{Value: models.CurrentConditions{Name: city}},
		Forecast: query.Result[models.ForecastSeries]{Value: models.ForecastSeries{City: city}},
	}
}

func failedOutcome(city string, code datasource.ErrorCode) query.Outcome {
	err := datasource.NewQueryError(code, nil)
	return query.Outcome{
		City:     city,
		Current:  query.Result[models.CurrentConditions]{Err: err},
		Forecast: query.Result[models.ForecastSeries]{Err: err},
	}
}

func TestSessionStore_UnknownSessionIsLoading(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())

	state := store.State("nope")
	assert.True(t, state.Current.Loading())
	assert.True(t, state.Forecast.Loading())
	assert.Zero(t, store.Len())
}

func TestSessionStore_CommitReplacesState(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())

	attempt, _ := store.Begin(context.Background(), "s1")
	require.True(t, store.Commit(attempt, okOutcome("Recife")))

	state := store.State("s1")
	assert.Equal(t, "Recife", state.City)
	assert.Equal(t, attempt.ID, state.Attempt)
	require.NotNil(t, state.Current.Data)
	assert.Equal(t, "Recife", state.Current.Data.Name)
	require.NotNil(t, state.Forecast.Data)
	assert.Empty(t, state.Current.Error)
}

func TestSessionStore_StaleAttemptIsDiscarded(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())

	slow, slowCtx := store.Begin(context.Background(), "s1")
	fast, _ := store.Begin(context.Background(), "s1")

	// Starting the newer attempt cancels the older one
	assert.ErrorIs(t, slowCtx.Err(), context.Canceled)

	require.True(t, store.Commit(fast, okOutcome("Fortaleza")))
	assert.False(t, store.Commit(slow, okOutcome("Curitiba")))

	assert.Equal(t, "Fortaleza", store.State("s1").City)
}

func TestSessionStore_FailureKeepsPreviousData(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())

	first, _ := store.Begin(context.Background(), "s1")
	require.True(t, store.Commit(first, okOutcome("Recife")))
	before := store.State("s1")

	second, _ := store.Begin(context.Background(), "s1")
	require.True(t, store.Commit(second, failedOutcome("Atlantis", datasource.ErrCodeCityNotFound)))

	state := store.State("s1")
	assert.Equal(t, "Atlantis", state.City)
	require.NotNil(t, state.Current.Data)
	assert.Equal(t, "Recife", state.Current.Data.Name)
	assert.Equal(t, string(datasource.ErrCodeCityNotFound), state.Current.ErrorCode)
	assert.Equal(t, "city not found", state.Current.Error)
	assert.Equal(t, before.Current.UpdatedAt, state.Current.UpdatedAt)

	// The earlier published value is untouched
	assert.Empty(t, before.Current.Error)
}

func TestSessionStore_FailureWithoutPreviousDataShowsError(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())

	attempt, _ := store.Begin(context.Background(), "s1")
	store.Commit(attempt, failedOutcome("Atlantis", datasource.ErrCodeCityNotFound))

	state := store.State("s1")
	assert.Nil(t, state.Current.Data)
	assert.False(t, state.Current.Loading())
	assert.Equal(t, "city not found", state.Current.Error)
}

func TestSessionStore_SuccessClearsError(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())

	a1, _ := store.Begin(context.Background(), "s1")
	store.Commit(a1, failedOutcome("X", datasource.ErrCodeTimeout))
	a2, _ := store.Begin(context.Background(), "s1")
	store.Commit(a2, okOutcome("Natal"))

	state := store.State("s1")
	assert.Empty(t, state.Current.Error)
	assert.Empty(t, state.Forecast.ErrorCode)
}

func TestSessionStore_CanceledLookupLeavesPanel(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())

	a1, _ := store.Begin(context.Background(), "s1")
	store.Commit(a1, okOutcome("Recife"))

	a2, _ := store.Begin(context.Background(), "s1")
	store.Commit(a2, failedOutcome("Recife", datasource.ErrCodeCanceled))

	state := store.State("s1")
	assert.Empty(t, state.Current.Error)
	require.NotNil(t, state.Current.Data)
}

func TestSessionStore_CanceledSearchKeepsPreviousCity(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())

	a1, _ := store.Begin(context.Background(), "s1")
	require.True(t, store.Commit(a1, okOutcome("Recife")))

	a2, _ := store.Begin(context.Background(), "s1")
	assert.False(t, store.Commit(a2, failedOutcome("Manaus", datasource.ErrCodeCanceled)))

	state := store.State("s1")
	assert.Equal(t, "Recife", state.City)
	assert.Equal(t, a1.ID, state.Attempt)
	require.NotNil(t, state.Current.Data)
	assert.Equal(t, "Recife", state.Current.Data.Name)
}

func TestSessionStore_PartlyCanceledSearchUpdatesCity(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())

	a1, _ := store.Begin(context.Background(), "s1")
	store.Commit(a1, okOutcome("Recife"))

	outcome := okOutcome("Manaus")
	outcome.Current = query.Result[models.CurrentConditions]{Err: datasource.NewQueryError(datasource.ErrCodeCanceled, nil)}
	a2, _ := store.Begin(context.Background(), "s1")
	require.True(t, store.Commit(a2, outcome))

	state := store.State("s1")
	assert.Equal(t, "Manaus", state.City)
	assert.Equal(t, "Recife", state.Current.Data.Name)
	assert.Equal(t, "Manaus", state.Forecast.Data.City)
}

func TestSessionStore_SessionsAreIndependent(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())

	a, _ := store.Begin(context.Background(), "a")
	b, _ := store.Begin(context.Background(), "b")
	assert.True(t, store.Commit(a, okOutcome("Recife")))
	assert.True(t, store.Commit(b, okOutcome("Natal")))

	assert.Equal(t, "Recife", store.State("a").City)
	assert.Equal(t, "Natal", store.State("b").City)
}

func TestSessionStore_Prune(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, idleCtx := store.Begin(context.Background(), "idle")
	now = now.Add(50 * time.Minute)
	store.Begin(context.Background(), "active")
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, store.Prune())
	assert.Equal(t, 1, store.Len())
	assert.ErrorIs(t, idleCtx.Err(), context.Canceled)
	assert.Zero(t, store.State("idle").Attempt)
}

func TestSessionStore_SchedulePrune(t *testing.T) {
	store := NewSessionStore(time.Hour, discardLogger())
	c := cron.New()

	require.NoError(t, store.SchedulePrune(c, "@every 10m"))
	assert.Len(t, c.Entries(), 1)
	assert.Error(t, store.SchedulePrune(c, "not a schedule"))
}
