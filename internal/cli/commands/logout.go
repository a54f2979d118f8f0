package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Encerrar a sessão atual",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}

			ctx := context.Background()
			app.Session.Bootstrap(ctx)
			if !app.Session.IsAuthenticated() {
				fmt.Println("Nenhuma sessão ativa.")
				return nil
			}

			if err := app.Session.SignOut(ctx); err != nil {
				// Local state is already cleared; the backend revoke
				// failing is worth knowing but not fatal.
				fmt.Printf("Aviso: falha ao revogar a sessão no servidor: %v\n", err)
			}

			fmt.Println("✓ Sessão encerrada.")
			return nil
		},
	}
}
