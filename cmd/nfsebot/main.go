// nfsebot ejecuta el robot en primer plano o administra operadores de la API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/portal-nfse/internal/application/auth"
	"github.com/jhoicas/portal-nfse/internal/application/relay"
	"github.com/jhoicas/portal-nfse/internal/application/scraper"
	"github.com/jhoicas/portal-nfse/internal/bootstrap"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/userfile"
	"github.com/jhoicas/portal-nfse/pkg/config"
	"github.com/jhoicas/portal-nfse/pkg/logger"
)

var errRunFailed = errors.New("execução terminou com erro")

func main() {
	root := &cobra.Command{
		Use:           "nfsebot",
		Short:         "Robô de download de NFS-e do Emissor Nacional",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), userCmd())
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "erro:", err)
		}
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var competencia string
	var clientes []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Executa o robô para uma competência",
		RunE: func(cmd *cobra.Command, _ []string) error {
			comp := entity.PreviousCompetency(time.Now())
			if competencia != "" {
				c, err := entity.ParseCompetencyFlag(competencia)
				if err != nil {
					return err
				}
				comp = c
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// El log estructurado va a stderr; stdout queda para el progreso.
			log := logger.NewWithWriter(os.Stderr, cfg.App.LogLevel)
			return runForeground(cmd.Context(), cmd.OutOrStdout(), cfg, log, scraper.RunRequest{Competency: comp, Clients: clientes})
		},
	}
	cmd.Flags().StringVar(&competencia, "competencia", "", "competência YYYY-MM (padrão: mês anterior)")
	cmd.Flags().StringArrayVar(&clientes, "cliente", nil, "EMPRESA a processar (repetível; padrão: todos os ativos)")
	return cmd
}

// runForeground primer SIGINT pide la detención cooperativa; el segundo cancela el contexto.
func runForeground(ctx context.Context, out io.Writer, cfg *config.Config, log *logger.Logger, req scraper.RunRequest) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, abort := context.WithCancel(ctx)
	defer abort()

	rt := bootstrap.New(ctx, cfg, log)
	defer rt.Close()

	events := relay.New(relay.DefaultBuffer)
	flag := &relay.CancelFlag{}

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			if flag.Cancelled() {
				abort()
				return
			}
			flag.Set()
			fmt.Fprintln(out, "[INFO] Parando após o cliente atual... (Ctrl+C de novo para abortar)")
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.Runner.Run(ctx, req, events, flag)
	}()

	failed := false
	flush := func() {
		for _, ev := range events.Drain() {
			if ev.Kind == entity.EventError {
				failed = true
			}
			if line := relay.FormatEvent(ev); line != "" {
				fmt.Fprintln(out, line)
			}
		}
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			flush()
		case <-done:
			flush()
			if failed {
				return errRunFailed
			}
			return nil
		}
	}
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Operadores da API (users.json)"}
	var role string
	add := &cobra.Command{
		Use:   "add <usuario> <nome> <senha>",
		Short: "Cria ou atualiza um operador",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := userfile.New(cfg.Portal.UsersPath)
			if err != nil {
				return err
			}
			uc := auth.NewAuthUseCase(store, auth.JWTConfig{})
			op, err := uc.SaveOperator(args[0], args[1], args[2], role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: usuário '%s' criado/atualizado com role='%s'.\n", op.Username, op.Role)
			return nil
		},
	}
	add.Flags().StringVar(&role, "role", entity.RoleUser, "admin | user")
	user.AddCommand(add)
	return user
}
