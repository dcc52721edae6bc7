package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*Engine, http.Handler) {
	t.Helper()
	engine := newTestEngine(t)
	r := chi.NewRouter()
	NewHandler(nil, engine).MountRoutes(r)
	return engine, r
}

func TestShowBudgetReturnsSnapshot(t *testing.T) {
	engine, router := newTestRouter(t)
	_, err := engine.Append(context.Background(), Entry{Source: SourceMain, Kind: KindPrecommit, Amount: 15_000})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/budget/MAIN", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var snap Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snap))
	require.EqualValues(t, 2_000_000, snap.Allocated)
	require.EqualValues(t, 15_000, snap.Precommitted)
	require.EqualValues(t, 1_985_000, snap.Balance)
}

func TestShowBudgetRejectsUnknownSource(t *testing.T) {
	_, router := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/budget/PETTY", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListLedgerFilters(t *testing.T) {
	engine, router := newTestRouter(t)
	ctx := context.Background()
	_, err := engine.Append(ctx, Entry{Source: SourceMain, Kind: KindPrecommit, Amount: 1000})
	require.NoError(t, err)
	_, err = engine.Append(ctx, Entry{Source: SourceCA, Kind: KindPrecommit, Amount: 2000})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledger?source=CA&kind=precommit", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []Entry
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&entries))
	require.Len(t, entries, 1)
	require.EqualValues(t, 2000, entries[0].Amount)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledger?kind=refund", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListBudgetsReturnsBothSources(t *testing.T) {
	_, router := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/budget", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var snaps []Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snaps))
	require.Len(t, snaps, 2)
	require.Equal(t, "Regular Cash Advance", snaps[1].Name)
	require.EqualValues(t, 400_000, snaps[1].ReplenishTo)
}
