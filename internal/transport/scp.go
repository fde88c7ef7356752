// Package transport provides the file-push implementations used to get
// a local file onto a device over an established SSH connection.
package transport

import (
	"context"
	"fmt"
	"os"

	scp "github.com/bramvdbogaerde/go-scp"
	"golang.org/x/crypto/ssh"

	"github.com/mrshanahan/nxcopy/pkg/config"
)

// NewScpTransport returns the SCP push implementation. This is the
// transport the device family natively expects for bootflash copies.
func NewScpTransport() config.Transport {
	return &scpTransport{}
}

type scpTransport struct{}

func (t *scpTransport) Name() string { return "scp" }

func (t *scpTransport) Push(ctx context.Context, client *ssh.Client, localPath string, remotePath string) error {
	scpClient, err := scp.NewClientBySSH(client)
	if err != nil {
		return fmt.Errorf("failed to create scp client: %w", err)
	}
	defer scpClient.Close()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer f.Close()

	if err := scpClient.CopyFromFile(ctx, *f, remotePath, "0644"); err != nil {
		return fmt.Errorf("scp copy to %s failed: %w", remotePath, err)
	}
	return nil
}
