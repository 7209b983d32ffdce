package visitrepository_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ssservicios/s3pay/internal/adapters/visitrepository"
	"github.com/ssservicios/s3pay/internal/domain"
	"github.com/stretchr/testify/require"
)

var buenosAires = time.FixedZone("ART", -3*60*60)

var juanVisit = domain.QueryVisit{
	Identifier: "30123456",
	Name:       "Juan Pérez",
	Plan:       "INFINIUM",
	Amount:     150000,
	Email:      "juan@example.com",
}

func TestMemory(t *testing.T) {
	t.Parallel()

	morning := time.Date(2026, 10, 19, 9, 0, 0, 0, buenosAires)
	evening := time.Date(2026, 10, 19, 21, 45, 10, 0, buenosAires)
	nextDay := time.Date(2026, 10, 20, 8, 0, 0, 0, buenosAires)

	t.Run("same identifier queried twice on one day", func(t *testing.T) {
		t.Parallel()

		repo := visitrepository.NewMemory()
		require.NoError(t, repo.RegisterQuery(t.Context(), morning, juanVisit))
		require.NoError(t, repo.RegisterQuery(t.Context(), evening, juanVisit))

		require.Equal(t, []domain.VisitRow{{
			Date:       "2026-10-19",
			Time:       "21:45:10",
			Identifier: "30123456",
			Name:       "Juan Pérez",
			Plan:       "INFINIUM",
			Amount:     150000,
			Email:      "juan@example.com",
			QueryCount: 2,
			ClickCount: 0,
		}}, repo.Rows())
	})

	t.Run("click without a query", func(t *testing.T) {
		t.Parallel()

		repo := visitrepository.NewMemory()
		require.NoError(t, repo.RegisterClick(t.Context(), morning, "27111222"))

		require.Equal(t, []domain.VisitRow{{
			Date:       "2026-10-19",
			Time:       "09:00:00",
			Identifier: "27111222",
			Name:       domain.ClickOnlyName,
			Plan:       domain.ClickOnlyPlan,
			Amount:     domain.ClickOnlyAmount,
			Email:      domain.NoEmail,
			QueryCount: 0,
			ClickCount: 1,
		}}, repo.Rows())
	})

	t.Run("query then click", func(t *testing.T) {
		t.Parallel()

		repo := visitrepository.NewMemory()
		require.NoError(t, repo.RegisterQuery(t.Context(), morning, juanVisit))
		require.NoError(t, repo.RegisterClick(t.Context(), evening, "30123456"))

		rows := repo.Rows()
		require.Len(t, rows, 1)
		require.Equal(t, 1, rows[0].QueryCount)
		require.Equal(t, 1, rows[0].ClickCount)
		require.Equal(t, "21:45:10", rows[0].Time)
	})

	t.Run("new day gets a new row", func(t *testing.T) {
		t.Parallel()

		repo := visitrepository.NewMemory()
		require.NoError(t, repo.RegisterQuery(t.Context(), morning, juanVisit))
		require.NoError(t, repo.RegisterQuery(t.Context(), nextDay, juanVisit))

		rows := repo.Rows()
		require.Len(t, rows, 2)
		require.Equal(t, "2026-10-19", rows[0].Date)
		require.Equal(t, "2026-10-20", rows[1].Date)
		require.Equal(t, 1, rows[0].QueryCount)
		require.Equal(t, 1, rows[1].QueryCount)
	})

	t.Run("different identifiers get separate rows", func(t *testing.T) {
		t.Parallel()

		other := juanVisit
		other.Identifier = "27111222"

		repo := visitrepository.NewMemory()
		require.NoError(t, repo.RegisterQuery(t.Context(), morning, juanVisit))
		require.NoError(t, repo.RegisterQuery(t.Context(), morning, other))

		require.Len(t, repo.Rows(), 2)
	})

	t.Run("concurrent events are all counted", func(t *testing.T) {
		t.Parallel()

		repo := visitrepository.NewMemory()

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = repo.RegisterQuery(t.Context(), morning, juanVisit)
			}()
			go func() {
				defer wg.Done()
				_ = repo.RegisterClick(t.Context(), evening, juanVisit.Identifier)
			}()
		}
		wg.Wait()

		rows := repo.Rows()
		require.Len(t, rows, 1)
		require.Equal(t, 50, rows[0].QueryCount)
		require.Equal(t, 50, rows[0].ClickCount)
	})
}

func TestNoop(t *testing.T) {
	t.Parallel()

	repo := visitrepository.Noop{}
	require.NoError(t, repo.RegisterQuery(t.Context(), time.Now(), juanVisit))
	require.NoError(t, repo.RegisterClick(t.Context(), time.Now(), "30123456"))
}
