package verbosity

// Verbosity controls how many suggestions Lookup returns.
type Verbosity int

const (
	// Top returns the single suggestion with the highest count among those of
	// the smallest edit distance found.
	Top Verbosity = iota
	// Closest returns every suggestion of the smallest edit distance found,
	// ordered by count.
	Closest
	// All returns every suggestion within the edit distance bound, ordered by
	// distance then count. No early termination.
	All
)

func (v Verbosity) String() string {
	switch v {
	case Top:
		return "top"
	case Closest:
		return "closest"
	case All:
		return "all"
	default:
		return "unknown"
	}
}
