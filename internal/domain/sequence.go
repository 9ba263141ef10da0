package domain

import "time"

// SequenceCounter is one counter document per (tenant, category,
// period). Created on first use, incremented atomically thereafter,
// never deleted and never decremented. The tenant scope field is
// injected by the scope guard on every access.
type SequenceCounter struct {
	ID        string    `bson:"id" json:"id"`
	Category  string    `bson:"category" json:"category"`
	Period    string    `bson:"period" json:"period"`
	Seq       int64     `bson:"seq" json:"seq"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
