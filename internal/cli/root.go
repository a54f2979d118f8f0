package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wallysom2/egua-cli/internal/cli/commands"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "egua",
	Short: "Egua - Plataforma de ensino de programação",
	Long: `CLI da plataforma Egua.

Autentique-se, explore conteúdos e turmas, envie respostas e acompanhe
as análises automáticas geradas para elas.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Mostrar a versão",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("egua version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewRegisterCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewTurmasCmd())
	rootCmd.AddCommand(commands.NewConteudosCmd())
	rootCmd.AddCommand(commands.NewAnaliseCmd())
	rootCmd.AddCommand(commands.NewAvatarCmd())
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		return err
	}
	return nil
}
