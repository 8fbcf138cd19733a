package reflser

import (
	"slices"
	"sort"
	"sync"
)

// MemSidecars is a transient in-memory SidecarStore intended for tests.
// It counts writes, so tests can assert that unchanged payloads are skipped.
type MemSidecars struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	writes int
}

func NewMemSidecars() *MemSidecars {
	return &MemSidecars{blobs: make(map[string][]byte)}
}

func memSidecarKey(docPath string, key SidecarKey) string {
	return SidecarPath(docPath, key, defaultSidecarExt)
}

func (s *MemSidecars) Get(docPath string, key SidecarKey) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[memSidecarKey(docPath, key)]
	return slices.Clone(data), ok, nil
}

func (s *MemSidecars) Put(docPath string, key SidecarKey, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[memSidecarKey(docPath, key)] = slices.Clone(data)
	s.writes++
	return nil
}

// Writes returns the number of Put calls so far.
func (s *MemSidecars) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Paths returns the sorted paths of all stored payloads.
func (s *MemSidecars) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}

// Delete removes a payload, simulating a lost sidecar file.
func (s *MemSidecars) Delete(docPath string, key SidecarKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, memSidecarKey(docPath, key))
}
