package fastload

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"go.bug.st/serial"

	"github.com/moffa90/go-bflb/fastload"
	"github.com/moffa90/go-bflb/protocol"
)

// Command returns the fastload sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "fastload",
		Usage:     "Send a file to a device's fast-load loader over serial",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "port",
				Sources:  cli.EnvVars("BFLB_PORT"),
				Usage:    "Serial port",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "baud",
				Sources: cli.EnvVars("BFLB_BAUD"),
				Usage:   "Baud rate",
				Value:   2000000,
			},
			&cli.IntFlag{
				Name:    "chunk-size",
				Sources: cli.EnvVars("BFLB_CHUNK_SIZE"),
				Usage:   "Payload bytes per chunk frame",
				Value:   protocol.DefaultChunkSize,
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Sources: cli.EnvVars("BFLB_READ_TIMEOUT"),
				Usage:   "Time to wait for each device reply",
				Value:   time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected one file to send")
			}
			path := cmd.Args().First()

			port, err := serial.Open(cmd.String("port"), &serial.Mode{BaudRate: int(cmd.Int("baud"))})
			if err != nil {
				return fmt.Errorf("open %s: %w", cmd.String("port"), err)
			}
			defer func() { _ = port.Close() }()

			logger := log.Default()
			sender := fastload.New(port,
				fastload.WithLogger(logger),
				fastload.WithReadTimeout(cmd.Duration("timeout")),
				fastload.WithChunkSize(int(cmd.Int("chunk-size"))),
				fastload.WithProgressCallback(func(p fastload.Progress) {
					logger.Debug("progress", "phase", p.Phase, "chunk", p.Chunk, "of", p.TotalChunks,
						"percent", fmt.Sprintf("%.1f", p.Percentage))
				}),
			)

			start := time.Now()
			if err := sender.SendFile(ctx, path); err != nil {
				if fastload.IsTransferError(err) {
					logger.Error("transfer failed", "code", fastload.ErrorCode(err).String())
				}
				return err
			}
			logger.Info("transfer complete", "file", path, "elapsed", time.Since(start).Round(time.Millisecond).String())
			return nil
		},
	}
}
