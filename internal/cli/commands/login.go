package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Autenticar na plataforma Egua",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email (ou defina EGUA_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Senha (ou defina EGUA_PASSWORD; será solicitada se ausente)")

	return cmd
}

func runLogin(email, password string) error {
	email, password, err := resolveCredentials(email, password)
	if err != nil {
		return err
	}

	app, err := NewApp()
	if err != nil {
		return err
	}

	return signIn(context.Background(), app, email, password)
}

// resolveCredentials fills missing flags from the environment and, as
// a last resort, prompts for the password on an interactive terminal.
func resolveCredentials(email, password string) (string, string, error) {
	// Environment variables cover CI/scripted use.
	if email == "" {
		email = os.Getenv("EGUA_EMAIL")
	}
	if password == "" {
		password = os.Getenv("EGUA_PASSWORD")
	}

	if email == "" {
		return "", "", fmt.Errorf("email é obrigatório (use --email ou EGUA_EMAIL)")
	}

	if password == "" {
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Senha: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return "", "", fmt.Errorf("falha ao ler a senha: %w", err)
			}
			password = string(bytePassword)
			fmt.Println()
		} else {
			return "", "", fmt.Errorf("senha é obrigatória em modo não interativo (use --password ou EGUA_PASSWORD)")
		}
	}

	return email, password, nil
}

func signIn(ctx context.Context, app *App, email, password string) error {
	if err := app.Session.SignIn(ctx, email, password); err != nil {
		return fmt.Errorf("falha no login: %w", err)
	}

	id := app.Session.Snapshot().Identity()
	fmt.Println("✓ Login realizado!")
	fmt.Printf("  Usuário: %s (%s)\n", id.DisplayName, id.Email)
	fmt.Printf("  Perfil: %s\n", id.Role)

	return nil
}
