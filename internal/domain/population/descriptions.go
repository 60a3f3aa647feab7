package population

import "sync"

// DescriptionIndex maps elasticId to description. It is append-only:
// the first description stored for an id is kept forever.
type DescriptionIndex struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewDescriptionIndex creates an empty index.
func NewDescriptionIndex() *DescriptionIndex {
	return &DescriptionIndex{entries: make(map[string]string)}
}

// Put stores description under id unless either is empty or id is already
// present. Returns true if the entry was added.
func (d *DescriptionIndex) Put(id, description string) bool {
	if id == "" || description == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[id]; ok {
		return false
	}
	d.entries[id] = description
	return true
}

// AddAll feeds every record that carries both an elasticId and a description.
// Returns the number of new entries.
func (d *DescriptionIndex) AddAll(pops []Population) int {
	added := 0
	for i := range pops {
		if !pops[i].HasDescription() {
			continue
		}
		if d.Put(pops[i].ElasticID, pops[i].Description) {
			added++
		}
	}
	return added
}

// Lookup returns the description stored for id.
func (d *DescriptionIndex) Lookup(id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	desc, ok := d.entries[id]
	return desc, ok
}

// Len returns the number of entries.
func (d *DescriptionIndex) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Snapshot returns a copy of all entries.
func (d *DescriptionIndex) Snapshot() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string, len(d.entries))
	for k, v := range d.entries {
		out[k] = v
	}
	return out
}
