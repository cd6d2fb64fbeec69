package types

// Request bounds enforced before any store access.
const (
	MinPageLimit = 1
	MaxPageLimit = 1000
	MinBulkRows  = 1
	MaxBulkRows  = 100000
	SeedRowCount = 5
	SeedValueMin = 1
	SeedValueMax = 100
	BulkValueMin = 1
	BulkValueMax = 1000
)
