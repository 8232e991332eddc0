package send

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-bflb/datagram"
	"github.com/moffa90/go-bflb/internal/cmd/channel"
)

// ErrFailed is returned when the service answers with a fail reply.
var ErrFailed = errors.New("service reported failure")

// Command returns the send sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send one command line to a running service",
		ArgsUsage: "<args...>|stop",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "addr",
				Sources:  cli.EnvVars("BFLB_SERVICE_ADDR"),
				Usage:    "Service address (host:port)",
				Required: true,
			},
			&cli.DurationFlag{
				Name:    "reply-timeout",
				Sources: cli.EnvVars("BFLB_REPLY_TIMEOUT"),
				Usage:   "How long to wait for the reply",
				Value:   5 * time.Minute,
			},
		}, channel.Flags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := channel.Options(cmd)
			if err != nil {
				return err
			}
			opts = append(opts,
				datagram.WithReplyTimeout(cmd.Duration("reply-timeout")),
				datagram.WithLogger(log.Default()),
			)

			c, err := datagram.Dial(cmd.String("addr"), opts...)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ok, err := c.Send(ctx, strings.Join(cmd.Args().Slice(), " "))
			if err != nil {
				return err
			}
			if !ok {
				return ErrFailed
			}
			log.Info("finished with success")
			return nil
		},
	}
}
