package registry

import "time"

// timerSet holds the cancellable timers of one server entry. At most
// one health-check and one reconnect timer exist at a time; every path
// that stops, disables or removes an entry goes through cancelAll so a
// cancellation is never missed.
type timerSet struct {
	health    *time.Timer
	reconnect *time.Timer
}

func (t *timerSet) cancelHealth() {
	if t.health != nil {
		t.health.Stop()
		t.health = nil
	}
}

func (t *timerSet) cancelReconnect() {
	if t.reconnect != nil {
		t.reconnect.Stop()
		t.reconnect = nil
	}
}

func (t *timerSet) cancelAll() {
	t.cancelHealth()
	t.cancelReconnect()
}
