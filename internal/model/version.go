package model

// Version constants for persisted records and the engine.
const (
	// RecordVersion is the schema version of persisted key-value records.
	RecordVersion = "1"

	// EngineVersion is the ritual engine version.
	EngineVersion = "0.1.0"
)
