// Package nxapi is a minimal client for the NX-API management
// interface: enough to run show commands and read their ASCII bodies.
package nxapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	insPath     = "/ins"
	requestType = "cli_show_ascii"
)

type request struct {
	InsAPI requestBody `json:"ins_api"`
}

type requestBody struct {
	Version      string `json:"version"`
	Type         string `json:"type"`
	Chunk        string `json:"chunk"`
	SID          string `json:"sid"`
	Input        string `json:"input"`
	OutputFormat string `json:"output_format"`
}

type response struct {
	InsAPI struct {
		Outputs struct {
			Output output `json:"output"`
		} `json:"outputs"`
	} `json:"ins_api"`
}

type output struct {
	Body  string `json:"body"`
	Code  string `json:"code"`
	Msg   string `json:"msg"`
	Input string `json:"input"`
}

// CLIError is returned when the device accepted the request but
// rejected the command itself.
type CLIError struct {
	Command string
	Code    string
	Msg     string
	Body    string
}

func (e *CLIError) Error() string {
	return fmt.Sprintf("device rejected command %q: %s (code %s)", e.Command, e.Msg, e.Code)
}

// Client talks to a single device's NX-API endpoint.
type Client struct {
	url      string
	username string
	password string
	http     *http.Client
}

// New builds a client for scheme://host:port/ins with HTTP basic auth.
// Management endpoints routinely present self-signed certificates, so
// https skips chain verification the same way the SSH side skips host
// key checks.
func New(scheme string, host string, port int, username string, password string, timeout time.Duration) *Client {
	httpClient := &http.Client{Timeout: timeout}
	if scheme == "https" {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &Client{
		url:      fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(host, strconv.Itoa(port)), insPath),
		username: username,
		password: password,
		http:     httpClient,
	}
}

// Show runs a single show command and returns the ASCII body. A
// non-200 command code yields a *CLIError carrying the device's
// message.
func (c *Client) Show(ctx context.Context, command string) (string, error) {
	payload, err := json.Marshal(request{
		InsAPI: requestBody{
			Version:      "1.0",
			Type:         requestType,
			Chunk:        "0",
			SID:          "1",
			Input:        command,
			OutputFormat: "json",
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode NX-API request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to build NX-API request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "NX-API request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read NX-API response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("NX-API endpoint returned HTTP %d", resp.StatusCode)
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrap(err, "failed to decode NX-API response")
	}

	out := parsed.InsAPI.Outputs.Output
	if out.Code != "200" {
		return "", &CLIError{Command: command, Code: out.Code, Msg: out.Msg, Body: out.Body}
	}
	return out.Body, nil
}
