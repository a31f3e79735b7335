package fileops

import (
	"fmt"

	"boxfm/pkg/pathguard"
)

// Request describes a single operation inside a batch.
type Request struct {
	Op        pathguard.Operation
	Src       string
	Dst       string
	NewName   string
	Overwrite bool
	UseTrash  bool
}

// Result pairs a batch request with its outcome.
type Result struct {
	Request Request
	Err     error
}

// Batch runs each request in order and collects per-item results. A failed
// item does not stop the batch; callers inspect the results to report which
// entries succeeded.
func (m *Manager) Batch(requests []Request) []Result {
	results := make([]Result, 0, len(requests))
	for _, req := range requests {
		var err error
		switch req.Op {
		case pathguard.OpCopy:
			err = m.Copy(req.Src, req.Dst, req.Overwrite)
		case pathguard.OpMove:
			err = m.Move(req.Src, req.Dst)
		case pathguard.OpRename:
			err = m.Rename(req.Src, req.NewName)
		case pathguard.OpDelete:
			err = m.Delete(req.Src, req.UseTrash)
		default:
			err = fmt.Errorf("unknown operation: %s", req.Op)
		}
		if err != nil {
			m.logger.Warn("Batch item failed", "op", req.Op, "src", req.Src, "error", err)
		}
		results = append(results, Result{Request: req, Err: err})
	}
	return results
}
