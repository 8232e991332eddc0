package efuse

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-bflb/efuse"
)

// Command returns the efuse sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "efuse",
		Usage: "Build eFuse data and mask images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "aes-mode",
				Sources: cli.EnvVars("BFLB_EFUSE_AES_MODE"),
				Usage:   "Flash encryption mode (none|aes128|aes192|aes256)",
				Value:   "none",
			},
			&cli.StringFlag{
				Name:    "aes-key",
				Sources: cli.EnvVars("BFLB_EFUSE_AES_KEY"),
				Usage:   "AES key as hex",
			},
			&cli.StringFlag{
				Name:    "public-key",
				Sources: cli.EnvVars("BFLB_EFUSE_PUBLIC_KEY"),
				Usage:   "PEM encoded P-256 signing public key",
			},
			&cli.StringFlag{
				Name:    "schema",
				Sources: cli.EnvVars("BFLB_EFUSE_SCHEMA"),
				Usage:   "YAML eFuse schema for another chip family",
			},
			&cli.BoolFlag{Name: "lock-pk-write", Usage: "Write-protect the public key hash"},
			&cli.BoolFlag{Name: "lock-pk-read", Usage: "Read-protect the public key hash"},
			&cli.BoolFlag{Name: "lock-aes-write", Usage: "Write-protect the AES key"},
			&cli.BoolFlag{Name: "lock-aes-read", Usage: "Read-protect the AES key"},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Output data image",
				Value: "efusedata.bin",
			},
			&cli.StringFlag{
				Name:  "mask",
				Usage: "Output mask image",
				Value: "efusedata_mask.bin",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mode, err := efuse.ParseAESMode(cmd.String("aes-mode"))
			if err != nil {
				return err
			}

			req := efuse.Request{
				AESMode:   mode,
				AESKeyHex: cmd.String("aes-key"),
				Locks: efuse.Locks{
					PKHashWrite: cmd.Bool("lock-pk-write"),
					PKHashRead:  cmd.Bool("lock-pk-read"),
					AESKeyWrite: cmd.Bool("lock-aes-write"),
					AESKeyRead:  cmd.Bool("lock-aes-read"),
				},
			}
			if path := cmd.String("public-key"); path != "" {
				if req.PublicKeyPEM, err = os.ReadFile(path); err != nil {
					return err
				}
			}

			opts := []efuse.Option{efuse.WithLogger(log.Default())}
			if path := cmd.String("schema"); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				schema, size, err := efuse.LoadSchema(f)
				_ = f.Close()
				if err != nil {
					return err
				}
				opts = append(opts, efuse.WithSchema(schema, size))
			}

			rec, err := efuse.NewEncoder(opts...).Build(req)
			if err != nil {
				return fmt.Errorf("build eFuse record: %w", err)
			}
			if err := efuse.WriteFiles(cmd.String("data"), cmd.String("mask"), rec); err != nil {
				return err
			}
			log.Info("eFuse images written", "data", cmd.String("data"), "mask", cmd.String("mask"), "mode", mode.String())
			return nil
		},
	}
}
