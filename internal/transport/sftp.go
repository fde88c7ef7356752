package transport

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/mrshanahan/nxcopy/pkg/config"
)

// NewSftpTransport returns the SFTP push implementation, for devices
// with the SSH file server feature enabled.
func NewSftpTransport() config.Transport {
	return &sftpTransport{}
}

type sftpTransport struct{}

func (t *sftpTransport) Name() string { return "sftp" }

func (t *sftpTransport) Push(ctx context.Context, client *ssh.Client, localPath string, remotePath string) error {
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("failed to create sftp client: %w", err)
	}
	defer sftpClient.Close()

	srcFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer srcFile.Close()

	dstFile, err := sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		// Attempt cleanup so a half-written file doesn't pass the next
		// existence check.
		_ = sftpClient.Remove(remotePath)
		return fmt.Errorf("sftp copy to %s failed: %w", remotePath, err)
	}
	return nil
}

// ForName maps a transport flag value to an implementation.
func ForName(name string) (config.Transport, error) {
	switch name {
	case "scp":
		return NewScpTransport(), nil
	case "sftp":
		return NewSftpTransport(), nil
	default:
		return nil, fmt.Errorf("transport must be one of \"scp\", \"sftp\" (was: %q)", name)
	}
}
