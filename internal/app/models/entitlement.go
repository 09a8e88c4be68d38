package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EntitlementSchemaVersion is the record layout written by this service.
// Records without a version are read as version 1.
const EntitlementSchemaVersion = 1

// ErrUnsupportedSchema marks a record written by a newer schema version.
// Such records must not be overwritten.
var ErrUnsupportedSchema = errors.New("unsupported entitlement schema version")

// EntitlementKeyPrefix prefixes every entitlement record key.
const EntitlementKeyPrefix = "entitlements:"

// EntitlementKey returns the backend key for a student's record.
func EntitlementKey(studentID string) string {
	return EntitlementKeyPrefix + studentID
}

// StudentIDFromEntitlementKey is the inverse of EntitlementKey.
func StudentIDFromEntitlementKey(key string) (string, bool) {
	if !strings.HasPrefix(key, EntitlementKeyPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, EntitlementKeyPrefix)
	return id, id != ""
}

// PendingChange is a staged set that has not been committed yet.
type PendingChange struct {
	VideoIDs VideoSet  `json:"videoIds"`
	StagedAt time.Time `json:"stagedAt"`
}

// EntitlementRecord is the authoritative per-student entitlement document.
type EntitlementRecord struct {
	SchemaVersion int            `json:"schemaVersion"`
	StudentID     string         `json:"studentId"`
	VideoIDs      VideoSet       `json:"videoIds"`
	Revision      int64          `json:"revision"`
	Pending       *PendingChange `json:"pending,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// DecodeEntitlementRecord parses a stored record. Unknown schema versions are
// rejected.
func DecodeEntitlementRecord(data []byte) (*EntitlementRecord, error) {
	var rec EntitlementRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode entitlement record: %w", err)
	}
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = EntitlementSchemaVersion
	}
	if rec.SchemaVersion > EntitlementSchemaVersion {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedSchema, rec.SchemaVersion)
	}
	rec.VideoIDs = rec.VideoIDs.Normalize()
	for _, id := range rec.VideoIDs {
		if id <= 0 {
			return nil, fmt.Errorf("invalid video id %d in entitlement record", id)
		}
	}
	if rec.Pending != nil {
		rec.Pending.VideoIDs = rec.Pending.VideoIDs.Normalize()
	}
	return &rec, nil
}

// Encode serializes the record with the current schema version.
func (r *EntitlementRecord) Encode() ([]byte, error) {
	out := *r
	out.SchemaVersion = EntitlementSchemaVersion
	out.VideoIDs = r.VideoIDs.Normalize()
	return json.Marshal(out)
}

// Drift describes a student whose denormalized copy disagrees with the
// entitlement store.
type Drift struct {
	StudentID string   `json:"studentId" example:"5b0f6c1e-0c44-4b5e-9d3c-2f1f2b8a7d10"`
	Expected  VideoSet `json:"expected"` // entitlement store
	Actual    VideoSet `json:"actual"`   // student record
}
