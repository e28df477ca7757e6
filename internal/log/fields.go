package log

// Canonical field name constants for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldMode      = "mode"
	FieldPath      = "path"
	FieldSource    = "source"

	// Parser counters
	FieldTotal   = "total"
	FieldDropped = "dropped"
	FieldTrips   = "safeguard_trips"
	FieldChunks  = "chunks"
)
