package cache

import (
	perr "github.com/jmgilman/go/errors"
)

// ErrLockTimeout is returned by DistributedLock.Acquire when the lock could
// not be obtained in time. Match with errors.Is.
var ErrLockTimeout = perr.New(perr.CodeTimeout, "output cache lock acquisition timed out")

// ErrNilItem is returned by Set when the item is nil.
var ErrNilItem = perr.New(perr.CodeInvalidInput, "output cache item is nil")
