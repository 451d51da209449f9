package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

func owner(s string) *string { return &s }

func scenarioAt(id string, own *string, created time.Time) domain.Scenario {
	return domain.Scenario{
		ID:        id,
		OwnerID:   own,
		Location:  "Nha Trang",
		Lang:      "en",
		State:     domain.StateCreated,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	sc := scenarioAt("a", owner("alice"), base)
	sc.Zones = domain.SynthesizeZones(&domain.Coordinates{Lat: 12.2, Lon: 109.2}, domain.RiskHigh)
	require.NoError(t, s.Save(ctx, sc))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alice", *got.OwnerID)
	assert.True(t, got.CreatedAt.Equal(base))
	assert.Equal(t, sc.Zones, got.Zones)
}

func TestStore_GetReturnsPrivateCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sc := scenarioAt("a", nil, time.Now())
	sc.Zones = domain.SynthesizeZones(&domain.Coordinates{Lat: 1, Lon: 1}, domain.RiskLow)
	require.NoError(t, s.Save(ctx, sc))

	sc.Zones[0].Level = domain.ImpactHigh
	first, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ImpactLow, first.Zones[0].Level, "caller mutation after Save must not leak")

	first.Zones[0].Level = domain.ImpactHigh
	second, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ImpactLow, second.Zones[0].Level, "mutation of a Get result must not leak")
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "missing"), domain.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Save(ctx, scenarioAt("a", nil, time.Now())))

	require.NoError(t, s.Delete(ctx, "a"))
	_, err := s.Get(ctx, "a")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStore_ListOrderingAndFilter(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, scenarioAt("old", owner("alice"), base)))
	require.NoError(t, s.Save(ctx, scenarioAt("new", owner("alice"), base.Add(time.Hour))))
	require.NoError(t, s.Save(ctx, scenarioAt("bob", owner("bob"), base.Add(2*time.Hour))))
	require.NoError(t, s.Save(ctx, scenarioAt("open", nil, base.Add(3*time.Hour))))

	all, err := s.List(ctx, nil, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "bob", "new", "old"}, ids(all))

	mine, err := s.List(ctx, owner("alice"), 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids(mine))

	capped, err := s.List(ctx, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "bob"}, ids(capped))
}

func TestStore_UpsertKeepsPosition(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, scenarioAt("a", nil, base)))
	require.NoError(t, s.Save(ctx, scenarioAt("b", nil, base)))

	updated := scenarioAt("a", nil, base)
	updated.State = domain.StateSimulated
	require.NoError(t, s.Save(ctx, updated))

	all, err := s.List(ctx, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(all))
	assert.Equal(t, domain.StateSimulated, all[1].State)
	assert.Equal(t, 2, s.Len())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_ = s.Save(ctx, scenarioAt(id, nil, time.Now()))
			_, _ = s.Get(ctx, id)
			_, _ = s.List(ctx, nil, 5)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, s.Len())
}

func ids(scs []domain.Scenario) []string {
	out := make([]string, 0, len(scs))
	for _, sc := range scs {
		out = append(out, sc.ID)
	}
	return out
}
