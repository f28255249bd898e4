package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentCode builds a unique human readable document code such as PN_1767225600000-3f9a1c.
func DocumentCode(prefix string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s%d-%s", prefix, at.UnixMilli(), suffix)
}
