package domain

import "errors"

var (
	// ErrNotFound is returned when a document does not exist for the
	// requesting tenant. An empty scoped result is a normal outcome,
	// not a storage failure.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned by the role and finance gates.
	ErrForbidden = errors.New("forbidden")

	// ErrIdentifierCollision is returned when the sequence generator
	// exhausted its single retry. It indicates corrupted counter state
	// and should alert operators.
	ErrIdentifierCollision = errors.New("identifier collision")
)

// Role defines the permission level of a user within an agency.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Identity is the authenticated caller of a request. It is
// reconstructed per request from a signed token and never persisted
// by this core.
type Identity struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     Role   `json:"role"`

	// FinanceAccess is an explicit opt-in grant for members; owners
	// and admins pass the finance gate without it.
	FinanceAccess bool `json:"finance_access,omitempty"`

	// AllowedVerticals restricts which business verticals the user
	// sees. Empty means no restriction configured.
	AllowedVerticals []string `json:"allowed_verticals,omitempty"`
}
