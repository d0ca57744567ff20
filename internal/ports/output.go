package ports

import "asmwalk/internal/types"

// TreeSinkPort receives rendered tree lines in pre-order.
type TreeSinkPort interface {
	Emit(line types.TreeLine) error
}
