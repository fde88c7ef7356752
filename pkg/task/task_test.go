package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrshanahan/nxcopy/pkg/config"
)

// fakeDevice records calls and simulates a device whose file system
// remembers what was copied to it.
type fakeDevice struct {
	files       map[string]bool
	existsErr   error
	copyErr     error
	existsCalls int
	copyCalls   int
	lastCopied  string
	closed      bool
}

func newFakeDevice(existing ...string) *fakeDevice {
	files := make(map[string]bool)
	for _, f := range existing {
		files[f] = true
	}
	return &fakeDevice{files: files}
}

func (d *fakeDevice) FileExists(ctx context.Context, fileSystem string, name string) (bool, error) {
	d.existsCalls++
	if d.existsErr != nil {
		return false, d.existsErr
	}
	return d.files[name], nil
}

func (d *fakeDevice) CopyFile(ctx context.Context, localPath string, destName string) error {
	d.copyCalls++
	if d.copyErr != nil {
		return d.copyErr
	}
	d.files[destName] = true
	d.lastCopied = destName
	return nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

type fakeProvider struct {
	creds config.Credentials
	err   error
}

func (p *fakeProvider) Lookup(vendor, model string) (config.Credentials, error) {
	return p.creds, p.err
}

func stubResolver(host string) (string, error) { return "192.0.2.10", nil }

func writeSourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.bin")
	require.NoError(t, os.WriteFile(path, []byte("firmware"), 0644))
	return path
}

func newTask(d *fakeDevice) *FileSyncTask {
	return &FileSyncTask{
		Resolve: stubResolver,
		NewDevice: func(params config.ConnectionParams) (config.Device, error) {
			return d, nil
		},
	}
}

func defaultParams() config.ConnectionParams {
	return config.ConnectionParams{Host: "switch1", Protocol: config.ProtocolHTTP}
}

func TestRunSkipsTransferWhenFileExists(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice("image.bin")

	result, err := newTask(d).Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.Equal(t, src, result.File)
	assert.Equal(t, 0, d.copyCalls)
	assert.True(t, d.closed)
}

func TestRunTransfersWhenFileAbsent(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice()

	result, err := newTask(d).Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, src, result.File)
	assert.Equal(t, 1, d.copyCalls)
	assert.Equal(t, "image.bin", d.lastCopied)
}

func TestRunIdempotence(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice()
	task := newTask(d)

	first, err := task.Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})
	require.NoError(t, err)
	second, err := task.Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})
	require.NoError(t, err)

	assert.True(t, first.Changed)
	assert.False(t, second.Changed)
	assert.Equal(t, 1, d.copyCalls)
}

func TestRunUsesExplicitDestName(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice()

	_, err := newTask(d).Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src, DestFile: "renamed.bin"})
	require.NoError(t, err)

	assert.Equal(t, "renamed.bin", d.lastCopied)
}

func TestRunTransferFailureIsTerminal(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice()
	d.copyErr = errors.New("connection reset by peer")

	result, err := newTask(d).Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})
	require.Error(t, err)

	var xferErr *TransferError
	require.ErrorAs(t, err, &xferErr)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Nil(t, result)
	assert.Equal(t, 1, d.copyCalls)
}

func TestRunExistenceFailurePropagates(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice()
	d.existsErr = errors.New("401 unauthorized")

	_, err := newTask(d).Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401 unauthorized")
	assert.Equal(t, 0, d.copyCalls)
}

func TestRunResolutionFailure(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice()
	task := newTask(d)
	task.Resolve = func(host string) (string, error) {
		return "", errors.New("no such host")
	}

	_, err := task.Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "switch1", resErr.Host)
	assert.Equal(t, 0, d.existsCalls)
}

func TestRunExplicitCredentialsOverrideStore(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice()
	var seen config.ConnectionParams

	task := &FileSyncTask{
		Resolve:     stubResolver,
		Credentials: &fakeProvider{creds: config.Credentials{Username: "stored-user", Password: "stored-pass"}},
		NewDevice: func(params config.ConnectionParams) (config.Device, error) {
			seen = params
			return d, nil
		},
	}

	params := defaultParams()
	params.Username = "explicit-user"
	params.Password = "explicit-pass"
	_, err := task.Run(context.Background(), params, config.TransferRequest{SourceFile: src})
	require.NoError(t, err)

	assert.Equal(t, "explicit-user", seen.Username)
	assert.Equal(t, "explicit-pass", seen.Password)
}

func TestRunFallsBackToStoredCredentials(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice()
	var seen config.ConnectionParams

	task := &FileSyncTask{
		Resolve:     stubResolver,
		Credentials: &fakeProvider{creds: config.Credentials{Username: "stored-user", Password: "stored-pass"}},
		NewDevice: func(params config.ConnectionParams) (config.Device, error) {
			seen = params
			return d, nil
		},
	}

	_, err := task.Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})
	require.NoError(t, err)

	assert.Equal(t, "stored-user", seen.Username)
	assert.Equal(t, "stored-pass", seen.Password)
}

func TestRunProceedsWithEmptyCredentials(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice()
	var seen config.ConnectionParams

	task := &FileSyncTask{
		Resolve:     stubResolver,
		Credentials: &fakeProvider{},
		NewDevice: func(params config.ConnectionParams) (config.Device, error) {
			seen = params
			return d, nil
		},
	}

	_, err := task.Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})
	require.NoError(t, err)
	assert.Empty(t, seen.Username)
	assert.Empty(t, seen.Password)
}

func TestRunCredentialStoreFailure(t *testing.T) {
	src := writeSourceFile(t)
	task := newTask(newFakeDevice())
	task.Credentials = &fakeProvider{err: errors.New("credential file unreadable")}

	_, err := task.Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "credentials", cfgErr.Param)
}

func TestRunDryRunSkipsTransfer(t *testing.T) {
	src := writeSourceFile(t)
	d := newFakeDevice()
	task := newTask(d)
	task.DryRun = true

	result, err := task.Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: src})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, 0, d.copyCalls)
}

func TestRunMissingSourceFile(t *testing.T) {
	d := newFakeDevice()

	_, err := newTask(d).Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: "/does/not/exist.bin"})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "source_file", cfgErr.Param)
	assert.Equal(t, 0, d.existsCalls)
}

func TestRunDirectoryAsSourceFile(t *testing.T) {
	d := newFakeDevice()

	_, err := newTask(d).Run(context.Background(), defaultParams(), config.TransferRequest{SourceFile: t.TempDir()})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "not a regular file")
}

func TestPickAddrPrefersIPv4(t *testing.T) {
	assert.Equal(t, "10.0.0.1", pickAddr([]string{"2001:db8::1", "10.0.0.1"}))
	assert.Equal(t, "10.0.0.1", pickAddr([]string{"10.0.0.1", "10.0.0.2"}))
	assert.Equal(t, "2001:db8::1", pickAddr([]string{"2001:db8::1"}))
}

func TestRunInvalidProtocol(t *testing.T) {
	src := writeSourceFile(t)
	params := defaultParams()
	params.Protocol = "telnet"

	_, err := newTask(newFakeDevice()).Run(context.Background(), params, config.TransferRequest{SourceFile: src})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "protocol", cfgErr.Param)
}
