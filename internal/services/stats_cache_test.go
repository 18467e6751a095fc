package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"finances/internal/cache"
	"finances/internal/core"
	"finances/internal/services"
	"finances/internal/storage"
)

type counter struct{ v uint64 }

func (c *counter) Version() uint64 { return c.v }

func TestCachedAggregator_ServesUntilNextWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := services.NewMockAggregator(ctrl)
	changes := &counter{}
	agg := services.NewCachedAggregator(next, changes, 8, time.Minute)
	ctx := context.Background()

	w, err := core.ParseWindow("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	first := core.StatsSummary{TotalIncome: decimal.NewFromInt(100)}
	second := core.StatsSummary{TotalIncome: decimal.NewFromInt(250)}

	gomock.InOrder(
		next.EXPECT().StatsSummary(gomock.Any(), w).Return(first, nil),
		next.EXPECT().StatsSummary(gomock.Any(), w).Return(second, nil),
	)

	got, err := agg.StatsSummary(ctx, w)
	require.NoError(t, err)
	assert.True(t, first.TotalIncome.Equal(got.TotalIncome))

	got, err = agg.StatsSummary(ctx, w)
	require.NoError(t, err)
	assert.True(t, first.TotalIncome.Equal(got.TotalIncome), "second read is served from cache")

	changes.v++
	got, err = agg.StatsSummary(ctx, w)
	require.NoError(t, err)
	assert.True(t, second.TotalIncome.Equal(got.TotalIncome), "a write invalidates the entry")

	m := agg.Metrics()
	assert.Equal(t, int64(1), m.Hits)
	assert.Equal(t, int64(2), m.Misses)
}

func TestCachedAggregator_KeysByArguments(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := services.NewMockAggregator(ctrl)
	agg := services.NewCachedAggregator(next, &counter{}, 8, time.Minute)
	ctx := context.Background()

	asc := storage.MonthlyQuery{Year: 2024, Order: core.Ascending}
	desc := storage.MonthlyQuery{Year: 2024, Order: core.Descending}
	next.EXPECT().MonthlyTotals(gomock.Any(), asc).Return([]core.PeriodStat{{Period: "2024-01"}, {Period: "2024-02"}}, nil).Times(1)
	next.EXPECT().MonthlyTotals(gomock.Any(), desc).Return([]core.PeriodStat{{Period: "2024-02"}, {Period: "2024-01"}}, nil).Times(1)
	next.EXPECT().CategoryTotals(gomock.Any(), core.KindExpense, nil).Return([]core.CategoryStat{{Name: "Rent"}}, nil).Times(1)
	next.EXPECT().CategoryTotals(gomock.Any(), core.KindIncome, nil).Return([]core.CategoryStat{{Name: "Salary"}}, nil).Times(1)

	for range 2 {
		got, err := agg.MonthlyTotals(ctx, asc)
		require.NoError(t, err)
		assert.Equal(t, "2024-01", got[0].Period)

		got, err = agg.MonthlyTotals(ctx, desc)
		require.NoError(t, err)
		assert.Equal(t, "2024-02", got[0].Period)

		cats, err := agg.CategoryTotals(ctx, core.KindExpense, nil)
		require.NoError(t, err)
		assert.Equal(t, "Rent", cats[0].Name)

		cats, err = agg.CategoryTotals(ctx, core.KindIncome, nil)
		require.NoError(t, err)
		assert.Equal(t, "Salary", cats[0].Name)
	}
}

func TestCachedAggregator_ReturnsCopies(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := services.NewMockAggregator(ctrl)
	agg := services.NewCachedAggregator(next, &counter{}, 8, time.Minute)

	next.EXPECT().AvailableYears(gomock.Any()).Return([]int{2024, 2023}, nil).Times(1)

	years, err := agg.AvailableYears(context.Background())
	require.NoError(t, err)
	years[0] = 1999

	years, err = agg.AvailableYears(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2023}, years)
}

func TestCachedAggregator_ErrorsAreNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := services.NewMockAggregator(ctrl)
	agg := services.NewCachedAggregator(next, &counter{}, 8, time.Minute)
	w, err := core.ParseWindow("2024-01-01", "2024-03-31")
	require.NoError(t, err)

	boom := errors.New("database is locked")
	gomock.InOrder(
		next.EXPECT().WeeklyTotals(gomock.Any(), w).Return(nil, boom),
		next.EXPECT().WeeklyTotals(gomock.Any(), w).Return([]core.PeriodStat{{Period: "2024-W13"}}, nil),
	)

	_, err = agg.WeeklyTotals(context.Background(), w)
	assert.ErrorIs(t, err, boom)

	got, err := agg.WeeklyTotals(context.Background(), w)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestCachedAggregator_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := services.NewMockAggregator(ctrl)
	agg := services.NewCachedAggregator(next, &counter{}, 8, -time.Second)

	next.EXPECT().AvailableYears(gomock.Any()).Return([]int{2024}, nil)
	_, err := agg.AvailableYears(context.Background())
	require.NoError(t, err)

	m := cache.NewManager(nil)
	agg.Register(m)
	assert.Equal(t, 1, m.Sweep(), "already expired entry is swept")
	assert.Zero(t, agg.Metrics().Size)
}
