package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewTurmasCmd creates the turmas command group.
func NewTurmasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "turmas",
		Short: "Gerenciar turmas",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Listar minhas turmas",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if err := app.RequireSession(ctx); err != nil {
				return err
			}

			turmas, err := app.Platform.MinhasTurmas(ctx)
			if err != nil {
				return err
			}

			if len(turmas) == 0 {
				fmt.Println("Você ainda não participa de nenhuma turma.")
				return nil
			}
			for _, turma := range turmas {
				fmt.Printf("%-26s  %-30s  código: %s\n", turma.ID, turma.Nome, turma.Codigo)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "join <codigo>",
		Short: "Entrar em uma turma pelo código",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if err := app.RequireSession(ctx); err != nil {
				return err
			}

			turma, err := app.Platform.JoinTurma(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("✓ Você entrou na turma %s.\n", turma.Nome)
			return nil
		},
	})

	return cmd
}
