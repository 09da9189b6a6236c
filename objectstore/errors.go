package objectstore

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/poiesic/docrag/fault"
)

// storageFault classifies an error of the storage backend.
func storageFault(err error) *fault.Fault {
	var f *fault.Fault
	if errors.As(err, &f) {
		return f
	}
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return fault.Wrap(fault.StorageConnection, err)
	}
	return fault.Wrap(fault.StorageError, err)
}
