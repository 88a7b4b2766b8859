package backup

import (
	"fmt"

	"github.com/lherron/planbak/internal/domain"
)

// OrderChangeInfo describes an update of a positioned record:
//
//	""                                  position unchanged
//	"Order: 0 → 3"                      only the position moved
//	"Order: 0 → 3, other changes"       position and content changed
func OrderChangeInfo[T domain.Positioned[T]](local, incoming T) string {
	oldPos, newPos := local.Position(), incoming.Position()
	if oldPos == newPos {
		return ""
	}

	info := fmt.Sprintf("Order: %d → %d", oldPos, newPos)
	if !Equal(local.WithPosition(newPos), incoming) {
		info += ", other changes"
	}
	return info
}
