package framework

import "sync"

// Session is the supervisor-owned state shared across the steps of one
// workflow run. The supervisor is the only writer between steps; delegated
// agents read it and report back through their AgentResult. The mutex exists
// because tool implementations may poke counters mid-step while the host
// renders progress from another goroutine, not because steps run concurrently
// (they never do).
type Session struct {
	mu sync.RWMutex

	context         map[string]any
	discoveries     []map[string]any
	classifications []Classification
	critiques       []Critique
	errors          []string
	metadata        map[string]any

	// Counter backing session-dependent tool availability. Tools consult it
	// through the accessor methods on every registry lookup.
	scanCompletions int
}

// NewSession builds an empty session.
func NewSession() *Session {
	return &Session{
		context:  make(map[string]any),
		metadata: make(map[string]any),
	}
}

// Get reads a context value.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.context[key]
	return v, ok
}

// Set stores a context value.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context[key] = value
}

// ContextCopy returns a shallow copy of the context map so result payloads
// do not alias live session state.
func (s *Session) ContextCopy() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.context))
	for k, v := range s.context {
		out[k] = v
	}
	return out
}

// AppendDiscoveries accumulates discovered-item records.
func (s *Session) AppendDiscoveries(items ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discoveries = append(s.discoveries, items...)
}

// Discoveries returns a copy of the accumulated discoveries.
func (s *Session) Discoveries() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]any, len(s.discoveries))
	copy(out, s.discoveries)
	return out
}

// AppendClassifications accumulates classification records.
func (s *Session) AppendClassifications(items ...Classification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications = append(s.classifications, items...)
}

// Classifications returns a copy of the accumulated classifications.
func (s *Session) Classifications() []Classification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Classification, len(s.classifications))
	copy(out, s.classifications)
	return out
}

// ReplaceClassifications swaps the classification list wholesale. The
// validator uses this after downgrading unsafe entries.
func (s *Session) ReplaceClassifications(items []Classification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications = append([]Classification(nil), items...)
}

// AppendCritiques accumulates reflection critiques.
func (s *Session) AppendCritiques(items ...Critique) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.critiques = append(s.critiques, items...)
}

// Critiques returns a copy of the accumulated critiques.
func (s *Session) Critiques() []Critique {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Critique, len(s.critiques))
	copy(out, s.critiques)
	return out
}

// AddError records a non-fatal workflow error.
func (s *Session) AddError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

// Errors returns a copy of the recorded errors.
func (s *Session) Errors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.errors))
	copy(out, s.errors)
	return out
}

// SetMetadata stores run-level metadata.
func (s *Session) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
}

// Metadata reads run-level metadata.
func (s *Session) Metadata(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.metadata[key]
	return v, ok
}

// RecordScanCompletion bumps the successful-scan counter.
func (s *Session) RecordScanCompletion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanCompletions++
}

// ScanCompletions reports how many scans have succeeded this session.
func (s *Session) ScanCompletions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanCompletions
}
