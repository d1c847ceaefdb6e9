package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	dserrors "github.com/systmms/vaultboot/internal/errors"
	"github.com/systmms/vaultboot/pkg/provider"
)

func NewDoctorCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check Vault configuration and token without reading the secret",
		Long: `Verify that vaultboot is configured and that Vault accepts the token.

This command checks:
- VAULT_ADDR and VAULT_TOKEN are set
- the effective TLS trust mode
- the token via auth/token/lookup-self

The secret itself is never read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt.Logger.Info("Checking vaultboot configuration...")
			settings, store, _, err := rt.resolve()
			if err != nil {
				rt.Logger.Error("Configuration error: %v", err)
				return err
			}

			w := tabwriter.NewWriter(rt.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "ADDRESS\t%s\n", settings.Address)
			_, _ = fmt.Fprintf(w, "TRUST\t%s\n", settings.Trust)
			_, _ = fmt.Fprintf(w, "TIMEOUT\t%s\n", settings.Timeout)
			_, _ = fmt.Fprintf(w, "SECRET\t%s\n", provider.DefaultReference)

			ok, err := store.CheckAuth(cmd.Context())
			switch {
			case err != nil:
				_, _ = fmt.Fprintf(w, "AUTH\terror\n")
				_ = w.Flush()
				return dserrors.UserError{
					Message:    "Failed to verify Vault token",
					Details:    err.Error(),
					Suggestion: dserrors.VaultSuggestion(settings.Address, err),
					Err:        err,
				}
			case !ok:
				_, _ = fmt.Fprintf(w, "AUTH\trejected\n")
				_ = w.Flush()
				return dserrors.UserError{
					Message:    "Vault rejected the token",
					Suggestion: "Issue a new token and update VAULT_TOKEN",
					Err:        dserrors.ErrAuthenticationFailed,
				}
			}

			_, _ = fmt.Fprintf(w, "AUTH\tok\n")
			if err := w.Flush(); err != nil {
				return err
			}
			rt.Logger.Info("Vault accepted the token")
			return nil
		},
	}

	return cmd
}
