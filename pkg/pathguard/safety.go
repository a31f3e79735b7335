package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
)

// Operation is a file operation kind evaluated by IsSafeOperation.
type Operation string

const (
	OpCopy   Operation = "copy"
	OpMove   Operation = "move"
	OpRename Operation = "rename"
	OpDelete Operation = "delete"
)

// ParseOperation maps a user-supplied operation name to an Operation.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpCopy, OpMove, OpRename, OpDelete:
		return Operation(s), nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// Verdict is the outcome of a composite safety check. Reason is suitable for
// direct display to the user; it is "Safe" when the operation is cleared and
// names exactly the first failing check otherwise.
type Verdict struct {
	Safe   bool
	Reason string
}

func unsafe(reason string) Verdict {
	return Verdict{Safe: false, Reason: reason}
}

// IsSafeOperation evaluates whether a src -> dst operation may proceed. dst
// may be empty for operations without a destination (delete). Checks run in
// a fixed order and the first failure wins.
//
// IsSafeOperation never propagates a failure to the caller: expected
// rejections become a Verdict with the matching reason, and anything
// unexpected during evaluation is converted into a rejected Verdict rather
// than escaping.
func (g *Guard) IsSafeOperation(src, dst string, op Operation) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = unsafe(fmt.Sprintf("Unexpected error: %v", r))
		}
	}()

	srcReal, err := g.ValidatePath(src)
	if err != nil {
		return unsafe(reasonFor(err))
	}

	if _, err := os.Stat(srcReal); err != nil {
		return unsafe("Source does not exist")
	}

	if !g.CheckPermission(srcReal, PermRead) {
		return unsafe("No read permission on source")
	}

	if dst != "" {
		dstReal, err := g.ValidatePathForWrite(dst)
		if err != nil {
			return unsafe("Invalid destination: " + reasonFor(err))
		}

		dstParent := filepath.Dir(dstReal)
		if _, err := os.Stat(dstParent); err != nil {
			return unsafe("Destination directory does not exist")
		}

		if !g.CheckPermission(dstParent, PermWrite) {
			return unsafe("No write permission on destination directory")
		}

		// An existing destination under a forbidden prefix is refused even
		// when the destination path itself passed the gate.
		if _, err := os.Stat(dstReal); err == nil {
			if g.checkForbidden(dstReal) != nil {
				return unsafe("Cannot overwrite system file")
			}
		}
	}

	if op == OpDelete {
		if !g.CheckPermission(srcReal, PermDelete) {
			return unsafe("No permission to delete")
		}
	}

	return Verdict{Safe: true, Reason: "Safe"}
}
