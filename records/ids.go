package records

import "github.com/google/uuid"

// NewID returns prefix joined to a random UUID, e.g. "prod-emp-1-<uuid>".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
