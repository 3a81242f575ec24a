package run

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateID returns a new run identifier. The unix timestamp prefix keeps
// IDs roughly sortable by creation time; the uuid suffix guarantees
// uniqueness within the same second.
func GenerateID() string {
	return fmt.Sprintf("run-%d-%s", time.Now().Unix(), uuid.NewString()[:8])
}
