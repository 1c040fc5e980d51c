package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portal/internal/schedule"
)

type item struct {
	name string
	at   time.Time
}

func dateOf(i item) time.Time { return i.at }

func TestCategorizeIgnoresTimeOfDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 6, 15, 23, 59, 0, 0, loc)

	items := []item{
		{"tomorrow", time.Date(2024, 6, 16, 0, 0, 0, 0, loc)},
		{"today-early", time.Date(2024, 6, 15, 0, 5, 0, 0, loc)},
		{"yesterday-late", time.Date(2024, 6, 14, 23, 59, 59, 0, loc)},
		{"today-late", time.Date(2024, 6, 15, 23, 0, 0, 0, loc)},
	}

	b := schedule.Categorize(items, dateOf, now, loc)
	require.Equal(t, 4, b.Len())
	require.Len(t, b.Past, 1)
	require.Equal(t, "yesterday-late", b.Past[0].name)
	require.Len(t, b.Current, 2)
	require.Equal(t, "today-early", b.Current[0].name)
	require.Equal(t, "today-late", b.Current[1].name)
	require.Len(t, b.Future, 1)
	require.Equal(t, "tomorrow", b.Future[0].name)
}

func TestCategorizeUsesReferenceZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on the 14th is already the 15th in IST.
	now := time.Date(2024, 6, 14, 20, 0, 0, 0, time.UTC)
	items := []item{{"m", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)}}

	b := schedule.Categorize(items, dateOf, now, ist)
	require.Len(t, b.Current, 1)

	b = schedule.Categorize(items, dateOf, now, time.UTC)
	require.Empty(t, b.Current)
	require.Len(t, b.Future, 1)
}

func TestCategorizeEmptyBucketsAreNonNil(t *testing.T) {
	b := schedule.Categorize[item](nil, dateOf, time.Now(), nil)
	require.NotNil(t, b.Past)
	require.NotNil(t, b.Current)
	require.NotNil(t, b.Future)
	require.Zero(t, b.Len())
}
