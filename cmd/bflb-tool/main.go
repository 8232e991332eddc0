package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-bflb/internal/cmd/efuse"
	"github.com/moffa90/go-bflb/internal/cmd/fastload"
	"github.com/moffa90/go-bflb/internal/cmd/flashcfg"
	"github.com/moffa90/go-bflb/internal/cmd/partition"
	"github.com/moffa90/go-bflb/internal/cmd/send"
	"github.com/moffa90/go-bflb/internal/cmd/serve"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "bflb-tool",
		Usage: "Provisioning tools for Bouffalo Lab MCUs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Sources: cli.EnvVars("BFLB_LOG_LEVEL"),
				Usage:   "Log level (debug|info|warn|error)",
				Value:   "info",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := log.ParseLevel(cmd.String("log-level"))
			if err != nil {
				return ctx, err
			}
			log.SetLevel(level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			partition.Command(),
			efuse.Command(),
			flashcfg.Command(),
			fastload.Command(),
			serve.Command(),
			send.Command(),
		},
	}
	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
