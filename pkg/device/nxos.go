// Package device implements the switch-side half of the sync: a
// management handle that can answer "is this file there?" over NX-API
// and push files over SSH.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/ssh"

	"github.com/mrshanahan/nxcopy/internal/nxapi"
	"github.com/mrshanahan/nxcopy/pkg/config"
)

const sshPort = 22

// Text the device returns from `dir` when the queried file is absent.
const noSuchFileMarker = "No such file"

type nxosDevice struct {
	params    config.ConnectionParams
	api       *nxapi.Client
	transport config.Transport
	timeout   time.Duration
	sshClient *ssh.Client
}

// NewNXOS opens a management handle for a single device. The NX-API
// side is connectionless; the SSH side is dialed on first transfer.
func NewNXOS(params config.ConnectionParams, transport config.Transport, timeout time.Duration) config.Device {
	api := nxapi.New(params.Protocol, params.Host, params.EffectivePort(), params.Username, params.Password, timeout)
	return &nxosDevice{
		params:    params,
		api:       api,
		transport: transport,
		timeout:   timeout,
	}
}

// Factory adapts NewNXOS to the shape the task expects.
func Factory(transport config.Transport, timeout time.Duration) config.DeviceFactory {
	return func(params config.ConnectionParams) (config.Device, error) {
		return NewNXOS(params, transport, timeout), nil
	}
}

func (d *nxosDevice) FileExists(ctx context.Context, fileSystem string, name string) (bool, error) {
	command := fmt.Sprintf("dir %s%s", fileSystem, name)
	slog.Debug("checking remote file", "host", d.params.Host, "cmd", command)

	body, err := d.api.Show(ctx, command)
	if err != nil {
		// Some firmware reports a missing file as a command error
		// rather than in the listing body.
		var cliErr *nxapi.CLIError
		if errors.As(err, &cliErr) && (strings.Contains(cliErr.Body, noSuchFileMarker) || strings.Contains(cliErr.Msg, noSuchFileMarker)) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query %s on %s: %w", name, d.params.Host, err)
	}
	return !strings.Contains(body, noSuchFileMarker), nil
}

func (d *nxosDevice) CopyFile(ctx context.Context, localPath string, destName string) error {
	client, err := d.getSSHClient()
	if err != nil {
		return err
	}
	// The SSH login lands in bootflash, so the destination name is
	// used as-is.
	return d.transport.Push(ctx, client, localPath, destName)
}

func (d *nxosDevice) getSSHClient() (*ssh.Client, error) {
	if d.sshClient != nil {
		return d.sshClient, nil
	}

	sshConfig := &ssh.ClientConfig{
		User: d.params.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(d.params.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.timeout,
	}
	addr := sshAddr(d.params.Host)
	client, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	d.sshClient = client
	return client, nil
}

func (d *nxosDevice) Close() error {
	var result *multierror.Error
	if d.sshClient != nil {
		if err := d.sshClient.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close ssh connection: %w", err))
		}
		d.sshClient = nil
	}
	return result.ErrorOrNil()
}

// sshAddr builds the dial address, bracketing IPv6 literals.
func sshAddr(host string) string {
	return net.JoinHostPort(host, strconv.Itoa(sshPort))
}
