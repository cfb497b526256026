package alarm

import "sync"

// ActiveAlarms is the deduplicated list of currently raised alarms,
// shared between the tick loop and the HTTP status surface.
type ActiveAlarms struct {
	activeAlarms []string
	sync.RWMutex
}

// Add adds an alarm and returns true if it was added. Returns false if
// it is already active.
func (a *ActiveAlarms) Add(alarm string) bool {
	a.Lock()
	defer a.Unlock()
	for _, activeAlarm := range a.activeAlarms {
		if activeAlarm == alarm {
			return false
		}
	}

	a.activeAlarms = append(a.activeAlarms, alarm)
	return true
}

// Clear drops all active alarms and reports whether any were active.
func (a *ActiveAlarms) Clear() bool {
	hasActive := false
	a.Lock()
	if len(a.activeAlarms) > 0 {
		hasActive = true
		a.activeAlarms = nil
	}
	a.Unlock()
	return hasActive
}

// Active returns a copy of the active alarm list.
func (a *ActiveAlarms) Active() []string {
	a.RLock()
	defer a.RUnlock()
	out := make([]string, len(a.activeAlarms))
	copy(out, a.activeAlarms)
	return out
}
