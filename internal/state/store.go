package state

// Store wraps the state document behind a narrow load/mutate/save contract.
// Update scopes an exclusive lock around the whole read-modify-write cycle,
// so two concurrent command invocations against the same state path cannot
// interleave their writes.
type Store struct {
	path string
}

// NewStore creates a Store for the document at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the state document path.
func (s *Store) Path() string { return s.path }

// Load reads the current document without taking the lock. Suitable for
// read-only commands.
func (s *Store) Load() (*State, error) {
	return Load(s.path)
}

// Update acquires the exclusive lock, loads the document, applies fn, and
// saves the result atomically if fn succeeds. The lock is held for the
// full duration of fn, so long-running work inside fn (such as agent
// dispatch) keeps single-writer semantics.
func (s *Store) Update(fn func(*State) error) error {
	lock, err := AcquireLock(s.path)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := Load(s.path)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return st.Save(s.path)
}
