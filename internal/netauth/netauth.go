// Package netauth reads fallback device credentials from a ~/.netauth
// file so playbook-style invocations don't need to pass username and
// password every time.
package netauth

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mrshanahan/nxcopy/pkg/config"
)

const FileName = ".netauth"

type entry struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// store is vendor -> model -> credentials.
type store map[string]map[string]entry

// Provider implements config.CredentialProvider over a dotfile in the
// user's home directory (or an explicit path).
type Provider struct {
	Path string
}

// NewProvider returns a provider reading $HOME/.netauth.
func NewProvider() (*Provider, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "could not locate home directory for .netauth lookup")
	}
	return &Provider{Path: filepath.Join(home, FileName)}, nil
}

// Lookup returns the credentials stored for vendor/model. A missing
// file or missing key is a miss, not an error: the store is optional
// by design of the calling contract.
func (p *Provider) Lookup(vendor string, model string) (config.Credentials, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return config.Credentials{}, nil
		}
		return config.Credentials{}, errors.Wrapf(err, "failed to read credential file %s", p.Path)
	}

	var s store
	if err := yaml.Unmarshal(data, &s); err != nil {
		return config.Credentials{}, errors.Wrapf(err, "failed to parse credential file %s", p.Path)
	}

	models, prs := s[vendor]
	if !prs {
		return config.Credentials{}, nil
	}
	e, prs := models[model]
	if !prs {
		return config.Credentials{}, nil
	}
	return config.Credentials{Username: e.Username, Password: e.Password}, nil
}
