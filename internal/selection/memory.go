package selection

import (
	"sync"
	"time"
)

const minJanitorInterval = time.Minute

type memEntry struct {
	gen  string
	path string
}

type generation struct {
	ids     []string
	created time.Time
}

// Memory keeps selections in process, grouped by generation. Generations
// older than the TTL are evicted by a background janitor.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	gens    map[string]*generation
	ttl     time.Duration
	now     func() time.Time
	log     Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewMemory(ttl time.Duration, log Logger) *Memory {
	m := &Memory{
		entries: make(map[string]memEntry),
		gens:    make(map[string]*generation),
		ttl:     ttl,
		now:     time.Now,
		log:     log,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if ttl > 0 {
		interval := ttl / 4
		if interval < minJanitorInterval {
			interval = minJanitorInterval
		}
		go m.janitor(interval)
	} else {
		close(m.done)
	}
	return m
}

func (m *Memory) Put(gen, id, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.gens[gen]
	if !ok {
		g = &generation{created: m.now()}
		m.gens[gen] = g
	}
	g.ids = append(g.ids, id)
	m.entries[id] = memEntry{gen: gen, path: path}
	return nil
}

func (m *Memory) Get(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return "", ErrNotFound
	}
	return e.path, nil
}

func (m *Memory) DropGeneration(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil
	}
	m.dropLocked(e.gen)
	return nil
}

func (m *Memory) dropLocked(gen string) {
	g, ok := m.gens[gen]
	if !ok {
		return
	}
	for _, id := range g.ids {
		delete(m.entries, id)
	}
	delete(m.gens, gen)
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Evict drops every generation created before cutoff and returns how many
// were dropped.
func (m *Memory) Evict(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for gen, g := range m.gens {
		if g.created.Before(cutoff) {
			m.dropLocked(gen)
			n++
		}
	}
	return n
}

func (m *Memory) janitor(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if n := m.Evict(m.now().Add(-m.ttl)); n > 0 {
				m.log.Debugf("evicted %d expired generations", n)
			}
		}
	}
}

// Close stops the janitor. The store stays usable.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	<-m.done
	return nil
}
