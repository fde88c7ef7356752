// Package task implements the idempotent file-sync operation: ensure a
// local file exists on a device file system, transferring at most once.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/mrshanahan/nxcopy/pkg/config"
)

// Credential store keys for the device family this tool targets.
const (
	CredentialVendor = "cisco"
	CredentialModel  = "nexus"
)

// Resolver turns a host name into an address usable by the transport
// layer.
type Resolver func(host string) (string, error)

// DefaultResolver resolves via the system resolver, preferring an IPv4
// address when one is available.
func DefaultResolver(host string) (string, error) {
	addrs, err := net.LookupHost(host)
	if err != nil {
		return "", err
	}
	return pickAddr(addrs), nil
}

func pickAddr(addrs []string) string {
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a
		}
	}
	return addrs[0]
}

// FileSyncTask wires the collaborators for a single sync invocation.
// All fields except NewDevice are optional.
type FileSyncTask struct {
	Resolve     Resolver
	Credentials config.CredentialProvider
	NewDevice   config.DeviceFactory
	DryRun      bool
}

// Run ensures the requested file exists on the device. It performs at
// most one transfer and reports whether a change occurred. Every
// failure is terminal for the invocation; there is no partial-success
// state.
func (t *FileSyncTask) Run(ctx context.Context, params config.ConnectionParams, req config.TransferRequest) (*config.TransferResult, error) {
	if err := validateSource(req.SourceFile); err != nil {
		return nil, err
	}
	if err := params.ValidateProtocol(); err != nil {
		return nil, &ConfigError{Param: "protocol", Err: err}
	}

	resolve := t.Resolve
	if resolve == nil {
		resolve = DefaultResolver
	}
	addr, err := resolve(params.Host)
	if err != nil {
		return nil, &ResolutionError{Host: params.Host, Err: err}
	}
	slog.Debug("resolved host", "host", params.Host, "addr", addr)
	params.Host = addr

	// Explicit credentials always win; the store is only consulted for
	// whichever of the pair is absent. When neither is available the
	// run proceeds with empty credentials and the device rejects on
	// its own terms.
	if (params.Username == "" || params.Password == "") && t.Credentials != nil {
		stored, err := t.Credentials.Lookup(CredentialVendor, CredentialModel)
		if err != nil {
			return nil, &ConfigError{Param: "credentials", Err: err}
		}
		if params.Username == "" {
			params.Username = stored.Username
		}
		if params.Password == "" {
			params.Password = stored.Password
		}
	}

	device, err := t.NewDevice(params)
	if err != nil {
		return nil, err
	}
	defer device.Close()

	dest := req.EffectiveDest()
	fileSystem := req.EffectiveFileSystem()

	exists, err := device.FileExists(ctx, fileSystem, dest)
	if err != nil {
		return nil, err
	}
	if exists {
		slog.Info("file already present, skipping transfer", "host", params.Host, "file-system", fileSystem, "dest", dest)
		return &config.TransferResult{File: req.SourceFile, Changed: false}, nil
	}

	if t.DryRun {
		slog.Info("DRY RUN: would transfer file", "host", params.Host, "source", req.SourceFile, "dest", dest)
		return &config.TransferResult{File: req.SourceFile, Changed: true}, nil
	}

	slog.Info("transferring file", "host", params.Host, "source", req.SourceFile, "dest", dest)
	if err := device.CopyFile(ctx, req.SourceFile, dest); err != nil {
		return nil, &TransferError{Source: req.SourceFile, Dest: dest, Err: err}
	}

	return &config.TransferResult{File: req.SourceFile, Changed: true}, nil
}

func validateSource(path string) error {
	if path == "" {
		return &ConfigError{Param: "source_file", Err: fmt.Errorf("no source file given")}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &ConfigError{Param: "source_file", Err: err}
	}
	if !info.Mode().IsRegular() {
		return &ConfigError{Param: "source_file", Err: fmt.Errorf("%s is not a regular file", path)}
	}
	f, err := os.Open(path)
	if err != nil {
		return &ConfigError{Param: "source_file", Err: err}
	}
	f.Close()
	return nil
}
