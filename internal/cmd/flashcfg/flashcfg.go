package flashcfg

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-bflb/flashcfg"
)

// Command returns the flashcfg sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "flashcfg",
		Usage: "Build and query flash controller config tables",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Encode a YAML part list",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Sources:  cli.EnvVars("BFLB_FLASHCFG_CONFIG"),
						Usage:    "YAML part list",
						Required: true,
					},
					&cli.StringFlag{Name: "out", Usage: "Output file", Required: true},
				},
				Action: build,
			},
			{
				Name:  "lookup",
				Usage: "Print the config for a JEDEC ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "table",
						Sources:  cli.EnvVars("BFLB_FLASHCFG_TABLE"),
						Usage:    "Encoded config table",
						Required: true,
					},
					&cli.StringFlag{Name: "jedec-id", Usage: "JEDEC ID, e.g. ef4016", Required: true},
				},
				Action: lookup,
			},
		},
	}
}

func build(ctx context.Context, cmd *cli.Command) error {
	t, err := flashcfg.ParseConfigFile(cmd.String("config"))
	if err != nil {
		return err
	}
	b, err := t.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(cmd.String("out"), b, 0o644); err != nil {
		return err
	}
	log.Info("flash config table written", "path", cmd.String("out"), "parts", len(t.Parts), "bytes", len(b))
	return nil
}

func lookup(ctx context.Context, cmd *cli.Command) error {
	id, err := flashcfg.ParseJEDECID(cmd.String("jedec-id"))
	if err != nil {
		return err
	}
	b, err := os.ReadFile(cmd.String("table"))
	if err != nil {
		return err
	}
	cfg, err := flashcfg.Lookup(b, id)
	if err != nil {
		return err
	}

	values := flashcfg.Values(cfg)
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-28s 0x%X\n", name, values[name])
	}
	return nil
}
