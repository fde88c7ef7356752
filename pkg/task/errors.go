package task

import "fmt"

// ResolutionError indicates the target host could not be resolved to an
// address. Fatal for the invocation.
type ResolutionError struct {
	Host string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unable to resolve host %q: %v", e.Host, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// TransferError indicates the file transfer itself failed. The
// underlying cause is carried verbatim; no retry is attempted.
type TransferError struct {
	Source string
	Dest   string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s to %s failed: %v", e.Source, e.Dest, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ConfigError indicates the invocation could not be set up at all:
// invalid parameter values or an unusable source file. Surfaced before
// any network activity.
type ConfigError struct {
	Param string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %v", e.Param, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
