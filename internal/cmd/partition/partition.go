package partition

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-bflb/partition"
)

// Command returns the partition sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "partition",
		Usage: "Build and inspect partition tables",
		Commands: []*cli.Command{
			encodeCommand(),
			showCommand(),
			selectCommand(),
		},
	}
}

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "Encode a YAML partition description",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Sources:  cli.EnvVars("BFLB_PARTITION_CONFIG"),
				Usage:    "YAML partition description",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Usage:    "Output file",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			t, err := partition.ParseConfigFile(cmd.String("config"))
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
			log.Info("partition table written", "path", cmd.String("out"), "entries", len(t.Entries), "bytes", len(b))
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Validate a partition table and list its entries",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected one partition table file")
			}
			b, err := os.ReadFile(cmd.Args().First())
			if err != nil {
				return err
			}
			t, err := partition.Decode(b)
			if err != nil {
				return err
			}
			printTable(t)

			images, err := partition.Parse(b)
			if err != nil {
				return err
			}
			for _, img := range images {
				fmt.Printf("%-4s address=0x%08X max_len=0x%08X\n", img.Type, img.Address, img.MaxLen)
			}
			return nil
		},
	}
}

func selectCommand() *cli.Command {
	return &cli.Command{
		Name:  "select",
		Usage: "Pick the live copy of a primary/backup table pair",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "primary", Usage: "Primary table image", Required: true},
			&cli.StringFlag{Name: "backup", Usage: "Backup table image", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			primary, err := os.ReadFile(cmd.String("primary"))
			if err != nil {
				return err
			}
			backup, err := os.ReadFile(cmd.String("backup"))
			if err != nil {
				return err
			}
			t, which, err := partition.Select(primary, backup)
			if err != nil {
				return err
			}
			log.Info("selected partition table", "copy", which, "age", t.Age)
			printTable(t)
			return nil
		},
	}
}

func printTable(t *partition.Table) {
	fmt.Printf("version=%d age=%d entries=%d\n", t.Version, t.Age, len(t.Entries))
	for _, e := range t.Entries {
		fmt.Printf("  %-9s type=%d dev=%d active=%d address=0x%08X max_len=0x%08X len=%d\n",
			e.Name, e.Type, e.Device, e.ActiveIndex, e.ActiveAddress(), e.ActiveMaxLen(), e.Len)
	}
}
