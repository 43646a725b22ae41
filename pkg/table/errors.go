package table

import "errors"

// Configuration mismatches. Constructors and Integrate wrap these with
// context; match them with errors.Is.
var (
	// ErrNoDimensions is returned when a table is built without dimensions.
	ErrNoDimensions = errors.New("table: at least one dimension is required")

	// ErrEmptyAnchors is returned for a dimension without anchors.
	ErrEmptyAnchors = errors.New("table: dimension has no anchors")

	// ErrNilSource is returned for a dimension without a source value.
	ErrNilSource = errors.New("table: dimension source is nil")

	// ErrDataLength is returned when the data buffer does not match the
	// product of the dimension sizes.
	ErrDataLength = errors.New("table: data length does not match dimensions")

	// ErrCoordinateCount is returned when Integrate receives a coordinate
	// count different from the dimension count.
	ErrCoordinateCount = errors.New("table: coordinate count does not match dimensions")

	// ErrIndexOutOfRange is returned for a cell index outside the table.
	ErrIndexOutOfRange = errors.New("table: index out of range")

	// ErrInvalidWindow is returned for a feedback averaging window below one.
	ErrInvalidWindow = errors.New("table: feedback window must be > 0")

	// ErrSeedLength is returned when feedback seed data does not match the
	// table shape.
	ErrSeedLength = errors.New("table: feedback seed length does not match dimensions")

	// ErrNilValue is returned when a required value (feedback real/target)
	// is missing.
	ErrNilValue = errors.New("table: value is nil")

	// ErrNilStore is returned when a durable state table has no store.
	ErrNilStore = errors.New("table: state store is nil")
)
