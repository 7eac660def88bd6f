package capture

// ArchiveEvictions returns the entries of the ascending sequence existing
// that must go before one more frame is admitted under capacity. In steady
// state that is the single oldest entry; a sequence already over capacity
// is trimmed back in one step.
func ArchiveEvictions(existing []string, capacity int) []string {
	if capacity < 1 || len(existing) < capacity {
		return nil
	}
	n := len(existing) - capacity + 1
	return existing[:n:n]
}

// LiveEvictions returns every entry other than keep.
func LiveEvictions(existing []string, keep string) []string {
	var out []string
	for _, name := range existing {
		if name != keep {
			out = append(out, name)
		}
	}
	return out
}
