package domain

import "time"

// AuditEntry is one immutable record of a single field change on a
// task. Entries are append-only: never updated or deleted by this
// core. Ordering key is (TaskID, Timestamp).
//
// The bson field names match the pre-existing task_history collection,
// including the legacy studio_id scope field.
type AuditEntry struct {
	ID        string    `bson:"id" json:"id"`
	TaskID    string    `bson:"task_id" json:"task_id"`
	ChangedBy string    `bson:"changed_by" json:"changed_by"`
	Field     string    `bson:"field" json:"field"`
	OldValue  string    `bson:"old_value,omitempty" json:"old_value,omitempty"`
	NewValue  string    `bson:"new_value,omitempty" json:"new_value,omitempty"`
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	StudioID  string    `bson:"studio_id" json:"studio_id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
