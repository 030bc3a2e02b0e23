package ident

import (
	"strconv"
	"sync/atomic"
	"time"
)

var counter atomic.Uint64

// New returns a short, sortable identifier: nanosecond timestamp plus a
// process-local counter, both base36. Unique within a process and stable
// enough across restarts for a single-operator tool.
func New() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(counter.Add(1), 36)
}
