package ids

import "sync"

// Table interns identifiers for one build. It replaces ad hoc process-wide
// id caches: create one per build and pass it to every component that needs
// to go between encoded strings and structured ids. Safe for concurrent use.
type Table struct {
	mu    sync.RWMutex
	byKey map[string]SymbolID
	byID  map[SymbolID]string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		byKey: make(map[string]SymbolID),
		byID:  make(map[SymbolID]string),
	}
}

// Intern encodes id once and remembers both directions.
func (t *Table) Intern(id SymbolID) (string, error) {
	t.mu.RLock()
	key, ok := t.byID[id]
	t.mu.RUnlock()
	if ok {
		return key, nil
	}

	key, err := id.Encode()
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.byID[id] = key
	t.byKey[key] = id
	t.mu.Unlock()
	return key, nil
}

// Resolve decodes key, serving repeated lookups from the table.
func (t *Table) Resolve(key string) (SymbolID, error) {
	t.mu.RLock()
	id, ok := t.byKey[key]
	t.mu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := DecodeSymbol(key)
	if err != nil {
		return SymbolID{}, err
	}

	t.mu.Lock()
	t.byKey[key] = id
	if id.String() == key {
		t.byID[id] = key
	}
	t.mu.Unlock()
	return id, nil
}

// Len returns the number of distinct keys seen.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byKey)
}
