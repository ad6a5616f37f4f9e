// Package align builds a Gaussian pyramid per burst frame and performs
// coarse-to-fine tile block matching to produce per-frame, per-tile
// displacement vectors (an Alignment Map) at native resolution.
package align

// Config exposes the tile-size / search-radius schedule used by the
// coarse-to-fine matcher, indexed from the coarsest pyramid level (index
// 0) to the finest (index Levels()-1). The defaults match the schedule
// suggested for a 4-level pyramid: 16-pixel tiles at every level except
// the finest, which narrows to 8 for a denser displacement field, with a tight
// 1-pixel search at the coarsest level widening to 4 pixels once coarse
// alignment has removed most of the burst's motion.
type Config struct {
	// TileSizes[i] is the tile side length Tℓ at schedule index i,
	// coarsest to finest.
	TileSizes []int

	// SearchRadii[i] is the per-axis search radius Rℓ at schedule index
	// i, coarsest to finest.
	SearchRadii []int
}

// DefaultConfig returns the spec-suggested 4-level schedule.
func DefaultConfig() Config {
	return Config{
		TileSizes:   []int{16, 16, 16, 8},
		SearchRadii: []int{1, 4, 4, 4},
	}
}

// Levels reports the number of pyramid levels this schedule covers.
func (c Config) Levels() int {
	return len(c.TileSizes)
}

// normalize fills in DefaultConfig's schedule for any empty field and
// panics if the two schedules disagree in length, which would leave a
// level with no tile size or no search radius.
func (c Config) normalize() Config {
	if len(c.TileSizes) == 0 {
		c.TileSizes = DefaultConfig().TileSizes
	}
	if len(c.SearchRadii) == 0 {
		c.SearchRadii = DefaultConfig().SearchRadii
	}
	if len(c.TileSizes) != len(c.SearchRadii) {
		panic("align: Config.TileSizes and Config.SearchRadii must have equal length")
	}
	return c
}
