package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Mostrar a identidade da sessão atual",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if err := app.RequireSession(ctx); err != nil {
				return err
			}

			id := app.Session.Snapshot().Identity()
			fmt.Printf("Nome:   %s\n", id.DisplayName)
			fmt.Printf("Email:  %s\n", id.Email)
			fmt.Printf("Perfil: %s\n", id.Role)
			if !id.Active {
				fmt.Println("Conta:  desativada")
			}
			return nil
		},
	}
}
