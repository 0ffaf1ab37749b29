package periodlock

import (
	"sync"
	"testing"
	"time"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	m := NewKeyMutex()
	key := KeyOf("agency-1", 2026, time.March)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		counter int
		max     int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock(key)
			defer unlock()

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if max != 1 {
		t.Errorf("max concurrent holders = %d, want 1", max)
	}
}

func TestKeyMutexIndependentKeys(t *testing.T) {
	m := NewKeyMutex()
	unlockA := m.Lock(KeyOf("agency-1", 2026, time.March))
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := m.Lock(KeyOf("agency-2", 2026, time.March))
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("distinct keys should not block each other")
	}
}

func TestKeyMutexReleasesEntries(t *testing.T) {
	m := NewKeyMutex()
	key := KeyOf("agency-1", 2026, time.April)
	unlock := m.Lock(key)
	unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.locks) != 0 {
		t.Errorf("lock map holds %d entries after release, want 0", len(m.locks))
	}
}

func TestLockValidate(t *testing.T) {
	valid := Lock{AgencyID: "agency-1", Year: 2026, Month: time.March}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid lock: %v", err)
	}
	cases := []struct {
		name string
		mut  func(*Lock)
	}{
		{"missing agency", func(l *Lock) { l.AgencyID = "" }},
		{"month zero", func(l *Lock) { l.Month = 0 }},
		{"month thirteen", func(l *Lock) { l.Month = 13 }},
		{"implausible year", func(l *Lock) { l.Year = 123 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := valid
			tc.mut(&l)
			if err := l.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLockCovers(t *testing.T) {
	l := Lock{AgencyID: "agency-1", Year: 2026, Month: time.March}
	if !l.Covers(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)) {
		t.Error("date inside the month should be covered")
	}
	if l.Covers(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("first instant of the next month should not be covered")
	}
	if l.Covers(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Error("same month of another year should not be covered")
	}
}
