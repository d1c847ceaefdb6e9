package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	dserrors "github.com/systmms/vaultboot/internal/errors"
	"github.com/systmms/vaultboot/internal/logging"
	"github.com/systmms/vaultboot/internal/metrics"
	"github.com/systmms/vaultboot/internal/park"
	"github.com/systmms/vaultboot/internal/secure"
	"github.com/systmms/vaultboot/pkg/provider"
)

// BootstrapOptions tunes the root command
type BootstrapOptions struct {
	// Print writes the fetched value to stdout
	Print bool

	// Park blocks after the fetch until the context ends
	Park func(ctx context.Context, logger *logging.Logger)
}

func NewRootCommand(rt *Runtime) *cobra.Command {
	var printValue bool

	cmd := &cobra.Command{
		Use:   "vaultboot",
		Short: "Fetch one credential from Vault, then keep the workload alive",
		Long: `vaultboot reads VAULT_ADDR and VAULT_TOKEN, fetches the 'password' field of
the KV v2 secret kv/store and holds it in encrypted memory. It then idles until
the orchestrator terminates the process.

TLS verification:
  VAULT_VERIFY_TLS=true   verify against the system trust store
  VAULT_CACERT=<path>     verify against a CA bundle (takes precedence)
  neither                 verification disabled (development only)

A missing secret or field is logged and the process keeps running without
a value. Missing configuration, a rejected token and any other Vault error
exit with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Bootstrap(cmd.Context(), rt, BootstrapOptions{
				Print: printValue,
				Park:  park.Forever,
			})
		},
	}

	cmd.Flags().BoolVar(&printValue, "print", false, "Write the fetched value to stdout")

	return cmd
}

// Bootstrap resolves settings, fetches the default reference once, holds the
// value and parks. Only not-found and field-missing failures are survivable.
func Bootstrap(ctx context.Context, rt *Runtime, opts BootstrapOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	settings, _, fetcher, err := rt.resolve()
	if err != nil {
		return err
	}
	rt.Logger.Info("Using Vault at %s (trust: %s, timeout: %s)", settings.Address, settings.Trust, settings.Timeout)

	metrics.Init()
	server := metrics.NewServer(metrics.DefaultServerConfig(settings.MetricsAddr), rt.Logger)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(shutdownCtx)
	}()
	if addr := server.Addr(); addr != "" {
		rt.Logger.Info("Serving metrics on %s", addr)
	}

	ref := provider.DefaultReference
	value, err := fetcher.Fetch(ctx, ref)
	if err != nil && !dserrors.IsRecoverable(err) {
		return err
	}

	// value is not read past this point; the enclave is the only copy in use
	held := secure.NewSecureString(value)
	defer held.Destroy()
	metrics.NewFetchMetrics().SetSecretAvailable(err == nil)

	if err != nil {
		rt.Logger.Error("%v", err)
		rt.Logger.Warn("Continuing without a value for %s", ref)
	} else {
		rt.Logger.Info("Fetched %s (%d bytes): %s", ref, held.Len(), held)
		if opts.Print {
			plain, err := held.Reveal()
			if err != nil {
				return fmt.Errorf("failed to open secure buffer: %w", err)
			}
			fmt.Fprintln(rt.Stdout, plain)
		}
	}

	if opts.Park != nil {
		rt.Logger.Info("Bootstrap complete, idling until terminated")
		opts.Park(ctx, rt.Logger)
	}
	return nil
}
