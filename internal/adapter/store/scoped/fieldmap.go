package scoped

import "github.com/atelierhq/atelier/internal/domain"

// DefaultScopeField is the canonical tenant attribute.
const DefaultScopeField = "agency_id"

// LegacyScopeField is carried by collections that predate the rename
// to agency_id.
const LegacyScopeField = "studio_id"

// legacyCollections is the fixed override set. Tasks and their history
// were written with studio_id and have never been backfilled.
var legacyCollections = map[string]struct{}{
	domain.CollTasks:       {},
	domain.CollTaskHistory: {},
}

// ScopeField resolves which attribute carries the tenant id for a
// collection. It is total: every collection name resolves to exactly
// one field, defaulting to agency_id.
func ScopeField(collection string) string {
	if _, ok := legacyCollections[collection]; ok {
		return LegacyScopeField
	}
	return DefaultScopeField
}
