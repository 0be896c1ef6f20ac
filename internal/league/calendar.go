package league

import "sync"

// WeeksPerSeason is the length of a season on the transfer calendar.
const WeeksPerSeason = 38

// Calendar is the league's week clock. Weeks are numbered from 1 and keep
// increasing across seasons.
type Calendar struct {
	mu   sync.RWMutex
	week int
}

func NewCalendar(week int) *Calendar {
	if week < 1 {
		week = 1
	}
	return &Calendar{week: week}
}

func (c *Calendar) CurrentWeek() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.week
}

// Advance moves the calendar one week forward and returns the new week.
func (c *Calendar) Advance() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.week++
	return c.week
}

// Season is the 1-based season the current week falls in.
func (c *Calendar) Season() int {
	return (c.CurrentWeek()-1)/WeeksPerSeason + 1
}

// WeekOfSeason is the 1-based week within the current season.
func (c *Calendar) WeekOfSeason() int {
	return (c.CurrentWeek()-1)%WeeksPerSeason + 1
}
