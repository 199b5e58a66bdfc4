// Package errs defines the error kinds shared by the domain runtime.
package errs

import "errors"

// Sentinel errors matching the upgrade entry-point's error codes.
var (
	// ErrInvalidArgument maps to EINVAL: old domain name unknown, or an illegal kind.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLoadFailure maps to ENOENT: new domain image could not be loaded.
	ErrLoadFailure = errors.New("new domain image could not be loaded")
	// ErrInitFailure maps to EIO: new implementation's Init returned an error.
	ErrInitFailure = errors.New("new domain implementation failed to initialize")
	// ErrNotImplemented is returned by placeholder/empty domain implementations.
	ErrNotImplemented = errors.New("not implemented")
)
