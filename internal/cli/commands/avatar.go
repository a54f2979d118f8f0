package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewAvatarCmd creates the avatar upload command.
func NewAvatarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "avatar <arquivo>",
		Short: "Enviar uma imagem de perfil (máx. 2MB)",
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

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("falha ao abrir o arquivo: %w", err)
			}
			defer file.Close()

			id := app.Session.Snapshot().Identity()
			path := fmt.Sprintf("%s%s", id.ID, filepath.Ext(args[0]))

			url, err := app.Uploader.Upload(ctx, path, file)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Imagem enviada: %s\n", url)
			return nil
		},
	}
}
