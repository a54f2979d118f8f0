package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wallysom2/egua-cli/internal/platform"
)

// NewConteudosCmd creates the conteudos command group.
func NewConteudosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conteudos",
		Short: "Gerenciar conteúdos",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Listar conteúdos",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if err := app.RequireSession(ctx); err != nil {
				return err
			}

			conteudos, err := app.Platform.ListConteudos(ctx)
			if err != nil {
				return err
			}

			for _, conteudo := range conteudos {
				fmt.Printf("%-26s  %s\n", conteudo.ID, conteudo.Titulo)
			}
			return nil
		},
	})

	var titulo, corpo string
	create := &cobra.Command{
		Use:   "create",
		Short: "Criar um conteúdo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if titulo == "" || corpo == "" {
				return fmt.Errorf("--titulo e --corpo são obrigatórios")
			}

			app, err := NewApp()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if err := app.RequireSession(ctx); err != nil {
				return err
			}

			conteudo, err := app.Platform.CreateConteudo(ctx, platform.Conteudo{
				Titulo: titulo,
				Corpo:  corpo,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Conteúdo criado: %s\n", conteudo.ID)
			return nil
		},
	}
	create.Flags().StringVar(&titulo, "titulo", "", "Título do conteúdo")
	create.Flags().StringVar(&corpo, "corpo", "", "Corpo do conteúdo")
	cmd.AddCommand(create)

	return cmd
}
