package config

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"

	DefaultFileSystem = "bootflash:"
)

// ConnectionParams describes how to reach a device's management API.
// Host is a name or IP as given by the caller; the task resolves it to
// an address before handing it to a device factory.
type ConnectionParams struct {
	Host     string
	Port     int
	Username string
	Password string
	Protocol string
}

// EffectivePort returns the configured port, falling back to the
// protocol's default NX-API port when unset.
func (p ConnectionParams) EffectivePort() int {
	if p.Port != 0 {
		return p.Port
	}
	if p.Protocol == ProtocolHTTPS {
		return 443
	}
	return 80
}

func (p ConnectionParams) ValidateProtocol() error {
	if p.Protocol != ProtocolHTTP && p.Protocol != ProtocolHTTPS {
		return fmt.Errorf("protocol must be one of %q, %q (was: %q)", ProtocolHTTP, ProtocolHTTPS, p.Protocol)
	}
	return nil
}

// TransferRequest names a local file and where it should land on the
// device. DestFile may be empty, in which case the base name of
// SourceFile is used.
type TransferRequest struct {
	SourceFile string
	DestFile   string
	FileSystem string
}

// EffectiveDest returns the remote file name after applying the
// default-to-basename rule.
func (r TransferRequest) EffectiveDest() string {
	if r.DestFile != "" {
		return r.DestFile
	}
	return filepath.Base(r.SourceFile)
}

// EffectiveFileSystem returns the target device file system, defaulting
// to bootflash.
func (r TransferRequest) EffectiveFileSystem() string {
	if r.FileSystem != "" {
		return r.FileSystem
	}
	return DefaultFileSystem
}

// TransferResult reports the outcome of a sync: the source file echoed
// back and whether anything on the device changed.
type TransferResult struct {
	File    string `json:"file"`
	Changed bool   `json:"changed"`
}

// Device is an open management handle to a switch. Implementations own
// whatever sessions they need and release them on Close.
type Device interface {
	// FileExists reports whether a file with the given name is present
	// on the device file system.
	FileExists(ctx context.Context, fileSystem string, name string) (bool, error)
	// CopyFile pushes the local file to the device under the given
	// remote name.
	CopyFile(ctx context.Context, localPath string, destName string) error
	Close() error
}

// DeviceFactory builds a device handle from resolved connection
// parameters. The task never dials anything itself.
type DeviceFactory func(params ConnectionParams) (Device, error)

// Credentials as resolved from a store or flags.
type Credentials struct {
	Username string
	Password string
}

// CredentialProvider looks up fallback credentials keyed by device
// vendor and model. A lookup miss returns empty credentials and no
// error; errors are reserved for unreadable/corrupt stores.
type CredentialProvider interface {
	Lookup(vendor string, model string) (Credentials, error)
}

// Transport pushes a single local file over an established SSH
// connection. Implementations must not retry.
type Transport interface {
	Name() string
	Push(ctx context.Context, client *ssh.Client, localPath string, remotePath string) error
}
