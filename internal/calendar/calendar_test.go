package calendar

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/wonny/propdesk/internal/contracts"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func names(occ []Occurrence) []string {
	out := make([]string, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.Event.Name)
	}
	return out
}

func TestDefault(t *testing.T) {
	cal := Default()
	assert.Equal(t, DefaultSource, cal.Source())
	assert.Equal(t, 9, cal.Len())

	for _, ev := range cal.Events() {
		assert.NotEmpty(t, ev.Confidence, ev.Name)
	}
}

func TestCalendar_On(t *testing.T) {
	cal := Default()

	tests := []struct {
		name    string
		date    string
		want    []string
		notWant []string
	}{
		{
			name:    "first friday has NFP",
			date:    "2024-01-05",
			want:    []string{"Non-Farm Payrolls (NFP)"},
			notWant: []string{"Initial Jobless Claims"},
		},
		{
			name:    "second friday has no NFP",
			date:    "2024-01-12",
			notWant: []string{"Non-Farm Payrolls (NFP)"},
		},
		{
			name: "thursday has jobless claims",
			date: "2024-01-11",
			want: []string{"Initial Jobless Claims", "Consumer Price Index (CPI)", "Producer Price Index (PPI)"},
		},
		{
			name: "FOMC whitelist",
			date: "2024-01-31",
			want: []string{"FOMC Rate Decision", "FOMC Press Conference"},
		},
		{
			name:    "first business day after a weekend",
			date:    "2024-06-03",
			want:    []string{"ISM Manufacturing PMI"},
			notWant: []string{"ISM Services PMI"},
		},
		{
			name: "third business day",
			date: "2024-06-05",
			want: []string{"ISM Services PMI"},
		},
		{
			name:    "weekday-only ranges skip saturday",
			date:    "2024-06-15",
			notWant: []string{"Consumer Price Index (CPI)", "Retail Sales", "Producer Price Index (PPI)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(cal.On(day(tt.date)))
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, got, nw)
			}
		})
	}
}

func TestCalendar_OccurrenceTime(t *testing.T) {
	occ := Default().On(day("2024-01-31"))
	byName := map[string]int{}
	for _, o := range occ {
		byName[o.Event.Name] = o.MinuteOfDay
	}
	assert.Equal(t, 14*60, byName["FOMC Rate Decision"])
	assert.Equal(t, 14*60+30, byName["FOMC Press Conference"])
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	data := []byte(`
events:
  - name: NFP
    impact: HIGH
    time: "08:30"
    confidence: CONFIRMED
    scheduel:
      kind: weekly
`)
	_, err := Parse("test", data)
	assert.Error(t, err)
}

func TestParse_CollectsEventErrors(t *testing.T) {
	data := []byte(`
events:
  - name: Bad time
    time: "8h30"
    confidence: CONFIRMED
    schedule: {kind: weekly, weekday: friday}
  - name: Bad weekday
    time: "08:30"
    confidence: CONFIRMED
    schedule: {kind: weekly, weekday: funday}
  - name: Bad confidence
    time: "08:30"
    confidence: SURE
    schedule: {kind: weekly, weekday: friday}
`)
	_, err := Parse("test", data)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(unwrapOnce(err)), 3)
}

func unwrapOnce(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return err
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse("test", []byte("events: []\n"))
	assert.Error(t, err)
}

func TestStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	writeCalendar := func(name string) {
		content := "events:\n" +
			"  - name: " + name + "\n" +
			"    impact: HIGH\n" +
			"    time: \"08:30\"\n" +
			"    confidence: CONFIRMED\n" +
			"    schedule: {kind: dates, dates: [\"2024-02-02\"]}\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	writeCalendar("First")
	store, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, "First", store.Current().Events()[0].Name)

	writeCalendar("Second")
	require.NoError(t, store.Reload())
	assert.Equal(t, "Second", store.Current().Events()[0].Name)

	// a broken file keeps the previous snapshot
	require.NoError(t, os.WriteFile(path, []byte("events: [oops"), 0o644))
	assert.Error(t, store.Reload())
	assert.Equal(t, "Second", store.Current().Events()[0].Name)
}

func TestStore_Embedded(t *testing.T) {
	store, err := NewStore("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSource, store.Current().Source())
	assert.NoError(t, store.Reload())
	assert.False(t, store.LoadedAt().IsZero())
}

func TestNew_Validates(t *testing.T) {
	_, err := New("inline", []Event{{
		Name:       "Range",
		Time:       "08:30",
		Confidence: contracts.ConfidenceEstimated,
		Schedule:   Schedule{Kind: KindDayRange, FromDay: 20, ToDay: 10},
	}})
	assert.Error(t, err)
}

func TestStore_ReloadIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	content := "events:\n" +
		"  - name: Payrolls\n" +
		"    impact: HIGH\n" +
		"    time: \"08:30\"\n" +
		"    confidence: CONFIRMED\n" +
		"    schedule: {kind: dates, dates: [\"2024-02-02\"]}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store, err := NewStore(path)
	require.NoError(t, err)
	loadedAt := store.LoadedAt()

	changed, err := store.ReloadIfChanged()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, loadedAt, store.LoadedAt())

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	changed, err = store.ReloadIfChanged()
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, os.Remove(path))
	_, err = store.ReloadIfChanged()
	assert.Error(t, err)
	assert.Equal(t, "Payrolls", store.Current().Events()[0].Name)

	embedded, err := NewStore("")
	require.NoError(t, err)
	changed, err = embedded.ReloadIfChanged()
	assert.NoError(t, err)
	assert.False(t, changed)
}
