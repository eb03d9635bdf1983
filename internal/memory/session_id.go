package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewSessionID generates an opaque session identifier: a millisecond
// timestamp prefix plus a short random suffix. Session IDs are unique with
// overwhelming probability but are not a security boundary.
func NewSessionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix)
}
