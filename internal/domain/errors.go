package domain

import "errors"

var (
	// ErrInvalidPeriodType is returned for period types outside daily, weekly, monthly, yearly, all_time.
	ErrInvalidPeriodType = errors.New("invalid period type")
	// ErrInvalidDateRange is returned when a range query's end is not after its start.
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrInvalidDimension is returned for unknown leaderboard dimensions.
	ErrInvalidDimension = errors.New("invalid leaderboard dimension")
	// ErrInvalidBoundingBox is returned when a bounding box has out-of-range coordinates.
	ErrInvalidBoundingBox = errors.New("invalid bounding box")
	// ErrStoreUnavailable indicates the persistence layer could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUpsertConflict indicates a concurrent writer won the race for a summary key.
	ErrUpsertConflict = errors.New("summary upsert conflict")
)

// IsInputError reports whether err was caused by caller input rather than the system.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidPeriodType) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidDimension) ||
		errors.Is(err, ErrInvalidBoundingBox)
}
