package tracestats

const (
	// SmallPageSize is the size of a 4K page in bytes (0x1000).
	SmallPageSize uint64 = 0x1000

	// LargePageSize is the size of a 2M page in bytes (0x200000).
	LargePageSize uint64 = 0x200000
)

// PageSizes is the running tally of pages per page-size bucket.
type PageSizes struct {
	Pages4K uint64
	Pages2M uint64
}

// Classify buckets a converted region of size bytes and returns the updated tally.
//
// A region smaller than one large page counts as size/4K small pages; anything
// else counts as size/2M large pages. A region never contributes to both
// buckets and remainder bytes are dropped.
func Classify(size uint64, state PageSizes) PageSizes {
	// size/4K < 2M/4K holds exactly when size < 2M.
	if size/SmallPageSize < LargePageSize/SmallPageSize {
		state.Pages4K += size / SmallPageSize
	} else {
		state.Pages2M += size / LargePageSize
	}
	return state
}
