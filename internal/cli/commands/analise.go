package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wallysom2/egua-cli/internal/platform"
	"github.com/wallysom2/egua-cli/internal/poller"
)

// NewAnaliseCmd creates the analise command.
func NewAnaliseCmd() *cobra.Command {
	var watch bool
	var intervalSec int

	cmd := &cobra.Command{
		Use:   "analise <respostaID>",
		Short: "Consultar a análise automática de uma resposta",
		Long: `Consulta a análise gerada de forma assíncrona para uma resposta
enviada. Com --watch o comando continua consultando até a análise
ficar pronta.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalise(args[0], watch, time.Duration(intervalSec)*time.Second)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Continuar consultando até a análise ficar pronta")
	cmd.Flags().IntVar(&intervalSec, "interval", 5, "Intervalo entre consultas, em segundos")

	return cmd
}

func runAnalise(respostaID string, watch bool, interval time.Duration) error {
	app, err := NewApp()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.RequireSession(ctx); err != nil {
		return err
	}

	fetch := func(ctx context.Context, jobID string) (poller.Result, error) {
		analise, err := app.Platform.GetAnalise(ctx, jobID)
		if err != nil {
			return poller.Result{}, err
		}
		return poller.Result{Ready: analise.Pronta, Payload: analise}, nil
	}

	done := make(chan poller.Snapshot, 1)
	onChange := func(snap poller.Snapshot) {
		switch snap.State {
		case poller.StateReady:
			done <- snap
		case poller.StateWaiting:
			fmt.Println(snap.Message)
		case poller.StateFailed:
			fmt.Println(snap.Message)
		}
	}

	p := poller.New(fetch, app.Session,
		poller.WithInterval(interval),
		poller.WithLogger(app.Log),
		poller.WithOnChange(onChange),
	)
	defer p.Close()

	if !watch {
		p.SetAutoRefresh(false)
	}

	p.SetJob(ctx, respostaID)

	if !watch {
		snap := p.Snapshot()
		if snap.State == poller.StateReady {
			printAnalise(snap.Result.Payload.(*platform.Analise))
		}
		return nil
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case snap := <-done:
		printAnalise(snap.Result.Payload.(*platform.Analise))
		return nil
	case <-quit:
		fmt.Println("Interrompido.")
		return nil
	}
}

func printAnalise(analise *platform.Analise) {
	fmt.Println("✓ Análise pronta!")
	if analise.Pontuacao != nil {
		fmt.Printf("  Pontuação: %d\n", *analise.Pontuacao)
	}
	if analise.Feedback != "" {
		fmt.Printf("  Feedback: %s\n", analise.Feedback)
	}
}
