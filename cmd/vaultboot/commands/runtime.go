package commands

import (
	"io"
	"os"

	"github.com/systmms/vaultboot/internal/config"
	"github.com/systmms/vaultboot/internal/logging"
	"github.com/systmms/vaultboot/internal/providers/vault"
)

// Runtime carries the process state shared by every command
type Runtime struct {
	Logger *logging.Logger
	Getenv func(string) string
	Stdout io.Writer

	// OpenStore builds the Vault collaborator; tests swap in a stub
	OpenStore func(settings config.Settings, logger *logging.Logger) (vault.Store, error)
}

// NewRuntime returns a Runtime wired to the real environment and Vault
func NewRuntime() *Runtime {
	return &Runtime{
		Logger: logging.Default(),
		Getenv: os.Getenv,
		Stdout: os.Stdout,
		OpenStore: func(settings config.Settings, logger *logging.Logger) (vault.Store, error) {
			return vault.NewAPIClient(settings, logger)
		},
	}
}

// resolve reads settings and opens a fetcher over the configured store
func (rt *Runtime) resolve() (config.Settings, vault.Store, *vault.Fetcher, error) {
	settings, err := config.ResolveWith(rt.Getenv, rt.Logger)
	if err != nil {
		return config.Settings{}, nil, nil, err
	}

	store, err := rt.OpenStore(settings, rt.Logger)
	if err != nil {
		return config.Settings{}, nil, nil, err
	}

	return settings, store, vault.NewFetcher(store, settings.Address, rt.Logger), nil
}
