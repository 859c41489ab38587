package domain

// Submission carries the submitted values of one grading request, keyed by
// field identifier. The HTTP layer parses request bodies; the core only
// consumes this mapping. Multi-select fields submit several values under one
// key. File fields submit an opaque handle (a stored file reference) that the
// core relays to the external grading collaborator without opening it.
//
// Sample tokens ride along as ordinary values: the group sample under
// "_sample"/"_checksum" and per-field samples under "<name>_sample" and
// "<name>_checksum".
type Submission struct {
	Values map[string][]string
	Files  map[string]string
}

// Get returns the first submitted value for a field, or "".
func (s Submission) Get(name string) string {
	if v := s.Values[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// List returns all submitted values for a field.
func (s Submission) List(name string) []string {
	return s.Values[name]
}

// Has reports whether any value was submitted for the field.
func (s Submission) Has(name string) bool {
	_, ok := s.Values[name]
	return ok
}

// File returns the opaque file handle submitted for a field, or "".
func (s Submission) File(name string) string {
	return s.Files[name]
}
