// Package cli wires the file-sync task to a command-line surface with
// pass/fail/changed semantics: exit 0 plus a JSON result on success,
// exit 1 plus a JSON failure on error.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrshanahan/nxcopy/internal/netauth"
	"github.com/mrshanahan/nxcopy/internal/transport"
	"github.com/mrshanahan/nxcopy/pkg/config"
	"github.com/mrshanahan/nxcopy/pkg/device"
	"github.com/mrshanahan/nxcopy/pkg/task"
)

type options struct {
	sourceFile    string
	destFile      string
	host          string
	port          int
	username      string
	password      string
	protocol      string
	fileSystem    string
	transportName string
	timeout       time.Duration
	dryRun        bool
	debug         bool
}

// failure is the structured error object printed on stdout when the
// run fails.
type failure struct {
	Msg   string `json:"msg"`
	Error string `json:"error"`
}

// NewRootCmd creates the `nxcopy` command.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "nxcopy",
		Short: "Copy a local file to a switch's bootflash, skipping the copy if it already exists",
		Long: `nxcopy ensures a local file is present on an NX-API enabled switch.
It checks the device file system first and only transfers when the file
is absent, reporting whether a change occurred.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	root.Flags().StringVar(&opts.sourceFile, "source-file", "", "local file to copy (required)")
	root.Flags().StringVar(&opts.destFile, "dest-file", "", "remote file name (default: base name of --source-file)")
	root.Flags().StringVar(&opts.host, "host", "", "hostname or IP of the target switch (required)")
	root.Flags().IntVar(&opts.port, "port", 0, "NX-API port (default: 80 for http, 443 for https)")
	root.Flags().StringVarP(&opts.username, "username", "u", "", "login username (default: from ~/.netauth)")
	root.Flags().StringVarP(&opts.password, "password", "p", "", "login password (default: from ~/.netauth)")
	root.Flags().StringVar(&opts.protocol, "protocol", config.ProtocolHTTP, "NX-API protocol, http or https")
	root.Flags().StringVar(&opts.fileSystem, "file-system", config.DefaultFileSystem, "target device file system")
	root.Flags().StringVar(&opts.transportName, "transport", "scp", "file transfer mechanism, scp or sftp")
	root.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-operation timeout")
	root.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Performs a dry run (no actual copies)")
	root.Flags().BoolVar(&opts.debug, "debug", false, "Enables debug logging")

	_ = root.MarkFlagRequired("source-file")
	_ = root.MarkFlagRequired("host")

	return root
}

func run(cmd *cobra.Command, opts *options) error {
	if opts.debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	tr, err := transport.ForName(opts.transportName)
	if err != nil {
		return &task.ConfigError{Param: "transport", Err: err}
	}

	syncTask := &task.FileSyncTask{
		Credentials: credentialProvider(),
		NewDevice:   device.Factory(tr, opts.timeout),
		DryRun:      opts.dryRun,
	}

	params := config.ConnectionParams{
		Host:     opts.host,
		Port:     opts.port,
		Username: opts.username,
		Password: opts.password,
		Protocol: opts.protocol,
	}
	req := config.TransferRequest{
		SourceFile: opts.sourceFile,
		DestFile:   opts.destFile,
		FileSystem: opts.fileSystem,
	}

	result, err := syncTask.Run(cmd.Context(), params, req)
	if err != nil {
		return err
	}

	return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
}

// credentialProvider returns the ~/.netauth store, or nil when no home
// directory can be determined (the task then runs on explicit
// credentials only).
func credentialProvider() config.CredentialProvider {
	provider, err := netauth.NewProvider()
	if err != nil {
		slog.Debug("credential store unavailable", "err", err)
		return nil
	}
	return provider
}

// failureFor maps an error to the structured failure contract.
func failureFor(err error) failure {
	var resErr *task.ResolutionError
	var xferErr *task.TransferError
	var cfgErr *task.ConfigError
	switch {
	case errors.As(err, &resErr):
		return failure{Msg: fmt.Sprintf("unable to resolve host %s", resErr.Host), Error: errorDetail(err, resErr.Err)}
	case errors.As(err, &xferErr):
		return failure{Msg: fmt.Sprintf("error transferring %s to device", xferErr.Source), Error: errorDetail(err, xferErr.Err)}
	case errors.As(err, &cfgErr):
		return failure{Msg: fmt.Sprintf("invalid configuration for %s", cfgErr.Param), Error: errorDetail(err, cfgErr.Err)}
	default:
		return failure{Msg: "file sync failed", Error: err.Error()}
	}
}

// errorDetail prefers the underlying cause, falling back to the outer
// error when no cause was attached.
func errorDetail(outer, cause error) string {
	if cause != nil {
		return cause.Error()
	}
	return outer.Error()
}

// Execute runs the root command and maps its outcome to an exit code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		slog.Error("run failed", "err", err)
		_ = json.NewEncoder(os.Stdout).Encode(failureFor(err))
		os.Exit(1)
	}
}
