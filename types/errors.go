package types

import (
	"fmt"

	"golang.org/x/xerrors"
)

var (
	// URI handling.
	ErrInvalidURI  = xerrors.New("invalid vospace uri")
	ErrInvalidName = xerrors.New("invalid node name")

	// Node operations, mapped from service status codes.
	ErrNodeNotFound  = xerrors.New("node not found")
	ErrNotAuthorized = xerrors.New("not authorized")
	ErrDuplicateNode = xerrors.New("duplicate node")
	ErrNodeLocked    = xerrors.New("node is locked")
	ErrNotContainer  = xerrors.New("node is not a container")
	ErrBadRequest    = xerrors.New("bad request")
	ErrServerError   = xerrors.New("service error")
	ErrUnavailable   = xerrors.New("service temporarily unavailable")

	// Data transfers.
	ErrChecksumMismatch = xerrors.New("checksum mismatch")
	ErrSizeMismatch     = xerrors.New("size mismatch")
	ErrNoTransferURL    = xerrors.New("no usable transfer endpoint")

	// Configuration.
	ErrInvalidConfig = xerrors.New("invalid config")
)

func Wrap(err0 error, err1 error) error {
	return fmt.Errorf("%w, due to %w", err0, err1)
}

func Wrapf(err error, format string, args ...interface{}) error {
	args = append(args, err)
	return fmt.Errorf(format+": %w", args...)
}

// ServiceError carries the context of a failed VOSpace call. It wraps one
// of the sentinel errors above so callers can branch with errors.Is.
type ServiceError struct {
	Sentinel error
	Op       string
	URL      string
	Status   int
	Body     string
	Err      error // lower-level cause (e.g. net.Error)
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("vospace: %s: %v", e.Op, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Sentinel
}
