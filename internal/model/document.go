package model

import "time"

// Document is the metadata record of one ingested file.
// This is a pure domain model with no database-specific dependencies or tags.
// The JSON tags define the wire shape used by the list/get endpoints; the
// stored path (the storage reference) is part of that shape.
type Document struct {
	ID               int64     `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	StoredPath       string    `json:"stored_path"`
	UploadedAt       time.Time `json:"uploaded_at"`
}
