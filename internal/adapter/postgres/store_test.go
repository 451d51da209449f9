package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func testScenario() domain.Scenario {
	owner := "alice"
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return domain.Scenario{
		ID:           "6f1c2c9e-0000-4000-8000-000000000001",
		OwnerID:      &owner,
		Location:     "Nha Trang",
		LocationName: "Nha Trang, Khanh Hoa, VN",
		Lang:         "en",
		State:        domain.StateCreated,
		Assessment: &domain.Assessment{Kind: domain.KindSimple, Simple: &domain.SimpleAssessment{
			RiskLevel: domain.RiskHigh, PossibleDisasters: []string{"Flooding"},
		}},
		Zones:     domain.SynthesizeZones(&domain.Coordinates{Lat: 12.2388, Lon: 109.1967}, domain.RiskHigh),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestSave_Upserts(t *testing.T) {
	store, mock := newMockStore(t)
	sc := testScenario()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scenarios (id,owner_id,location,location_name,lang,note,state,risk_level,data,created_at,updated_at)") + ".*ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(sc.ID, sc.OwnerID, "Nha Trang", "Nha Trang, Khanh Hoa, VN", "en", "", "CREATED", pgxmock.AnyArg(), pgxmock.AnyArg(), sc.CreatedAt, sc.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(context.Background(), sc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_DBError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO scenarios").WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), testScenario())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_DecodesJSONB(t *testing.T) {
	store, mock := newMockStore(t)
	sc := testScenario()
	data, err := json.Marshal(sc)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM scenarios WHERE id = $1")).
		WithArgs(sc.ID).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(data))

	got, err := store.Get(context.Background(), sc.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(sc, got); diff != "" {
		t.Errorf("scenario mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT data FROM scenarios").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_FilterAndLimit(t *testing.T) {
	store, mock := newMockStore(t)
	sc := testScenario()
	data, err := json.Marshal(sc)
	require.NoError(t, err)
	owner := "alice"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM scenarios WHERE owner_id = $1 ORDER BY created_at DESC, id DESC LIMIT 50")).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(data).AddRow(data))

	got, err := store.List(context.Background(), &owner, 50)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_AllOwnersEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM scenarios ORDER BY created_at DESC, id DESC LIMIT 50")).
		WillReturnRows(pgxmock.NewRows([]string{"data"}))

	got, err := store.List(context.Background(), nil, 50)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_CorruptRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT data FROM scenarios").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte("{not json")))

	_, err := store.List(context.Background(), nil, 50)
	require.Error(t, err)
}

func TestDelete(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scenarios WHERE id = $1")).
		WithArgs("sc-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scenarios WHERE id = $1")).
		WithArgs("sc-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.Delete(context.Background(), "sc-1"))
	require.ErrorIs(t, store.Delete(context.Background(), "sc-2"), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := migrations.ReadFile("migrations/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS scenarios")
}
