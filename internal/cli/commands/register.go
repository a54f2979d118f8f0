package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wallysom2/egua-cli/internal/identity"
	"github.com/wallysom2/egua-cli/internal/session"
)

// NewRegisterCmd creates the register command.
func NewRegisterCmd() *cobra.Command {
	var email, password, name, role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Criar uma conta na plataforma Egua",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(email, password, name, role)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&password, "password", "", "Senha (será solicitada se ausente)")
	cmd.Flags().StringVar(&name, "name", "", "Nome de exibição")
	cmd.Flags().StringVar(&role, "role", "", "Perfil: aluno, professor ou desenvolvedor (será perguntado se ausente)")

	return cmd
}

func runRegister(email, password, name, role string) error {
	if email == "" {
		return fmt.Errorf("email é obrigatório (use --email)")
	}
	if name == "" {
		return fmt.Errorf("nome é obrigatório (use --name)")
	}

	if password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("senha é obrigatória em modo não interativo (use --password)")
		}
		fmt.Print("Senha: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("falha ao ler a senha: %w", err)
		}
		password = string(bytePassword)
		fmt.Println()
	}

	if role == "" {
		selected, err := promptRole()
		if err != nil {
			return err
		}
		role = selected
	}

	app, err := NewApp()
	if err != nil {
		return err
	}

	pending, err := app.Session.SignUp(context.Background(), session.SignUpParams{
		Email:       email,
		Password:    password,
		DisplayName: name,
		Role:        role,
	})
	if err != nil {
		return fmt.Errorf("falha no cadastro: %w", err)
	}

	if pending {
		fmt.Println("✓ Conta criada! Confirme seu email antes de entrar.")
		return nil
	}

	fmt.Printf("✓ Conta criada e sessão iniciada para %s.\n", email)
	return nil
}

func promptRole() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("perfil é obrigatório em modo não interativo (use --role)")
	}

	prompt := promptui.Select{
		Label: "Qual é o seu perfil",
		Items: []string{
			string(identity.RoleLearner),
			string(identity.RoleTeacher),
			string(identity.RoleDeveloper),
		},
		Stdout: os.Stderr,
	}

	_, selected, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("seleção de perfil cancelada: %w", err)
	}
	return selected, nil
}
