package league

import "testing"

func TestCalendarAdvance(t *testing.T) {
	c := NewCalendar(0)
	if c.CurrentWeek() != 1 {
		t.Fatalf("new calendar should start at week 1, got %d", c.CurrentWeek())
	}
	for want := 2; want <= 5; want++ {
		if got := c.Advance(); got != want {
			t.Fatalf("advance got=%d want=%d", got, want)
		}
	}
}

func TestCalendarSeason(t *testing.T) {
	tests := []struct {
		week, season, weekOfSeason int
	}{
		{week: 1, season: 1, weekOfSeason: 1},
		{week: 38, season: 1, weekOfSeason: 38},
		{week: 39, season: 2, weekOfSeason: 1},
		{week: 80, season: 3, weekOfSeason: 4},
	}
	for _, tc := range tests {
		c := NewCalendar(tc.week)
		if c.Season() != tc.season || c.WeekOfSeason() != tc.weekOfSeason {
			t.Fatalf("week %d got season=%d week=%d", tc.week, c.Season(), c.WeekOfSeason())
		}
	}
}
