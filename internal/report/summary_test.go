package report

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"finances/internal/core"
)

func overview(t *testing.T) Overview {
	t.Helper()
	w, err := core.ParseWindow("2024-01-01", "2024-12-31")
	require.NoError(t, err)
	summary := core.NewStatsSummary(
		decimal.NewFromInt(24000), decimal.RequireFromString("18500.5"),
		decimal.NewFromInt(2000), decimal.NewFromInt(1200), 12)
	return Overview{
		Summary: summary.Report(w),
		Expenses: core.Shares([]core.CategoryStat{
			{ID: 1, Name: "Rent", Total: decimal.NewFromInt(14400)},
			{ID: 2, Name: "Food", Total: decimal.RequireFromString("4100.5")},
		}),
	}
}

func TestWrite_English(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, language.English, overview(t)))
	out := buf.String()

	assert.Contains(t, out, "2024-01-01..2024-12-31")
	assert.Contains(t, out, "24,000.00")
	assert.Contains(t, out, "5,499.50")
	assert.Contains(t, out, "22.91%")
	assert.Contains(t, out, "Rent")
	assert.Contains(t, out, "77.8%")
	assert.Contains(t, out, "Income by category")
	assert.Contains(t, out, "(none)")
}

func TestWrite_German(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, language.German, overview(t)))
	out := buf.String()

	assert.Contains(t, out, "24.000,00")
	assert.Contains(t, out, "5.499,50")
}

func TestParseLanguage(t *testing.T) {
	tag, err := ParseLanguage("it-IT")
	require.NoError(t, err)
	base, _ := tag.Base()
	assert.Equal(t, "it", base.String())

	_, err = ParseLanguage("not a tag!")
	assert.Error(t, err)
}
