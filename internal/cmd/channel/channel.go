// Package channel holds the datagram channel flags shared by the serve and
// send commands.
package channel

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-bflb/datagram"
	"github.com/moffa90/go-bflb/secure"
)

// Flags returns the channel protection flags.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "mode",
			Sources: cli.EnvVars("BFLB_CHANNEL_MODE"),
			Usage:   "Channel protection (plain|static|ecdh)",
			Value:   "plain",
		},
		&cli.StringFlag{
			Name:    "key",
			Sources: cli.EnvVars("BFLB_CHANNEL_KEY"),
			Usage:   "Pre-shared AES key as hex, for --mode static",
		},
		&cli.StringFlag{
			Name:    "padding",
			Sources: cli.EnvVars("BFLB_CHANNEL_PADDING"),
			Usage:   "AES padding (pkcs7|zero)",
			Value:   "pkcs7",
		},
	}
}

// Options turns the flag values into datagram options.
func Options(cmd *cli.Command) ([]datagram.Option, error) {
	return options(cmd.String("mode"), cmd.String("key"), cmd.String("padding"))
}

func options(mode, key, padding string) ([]datagram.Option, error) {
	var opts []datagram.Option

	switch padding {
	case "pkcs7":
		opts = append(opts, datagram.WithPadding(secure.PaddingPKCS7))
	case "zero":
		opts = append(opts, datagram.WithPadding(secure.PaddingZero))
	default:
		return nil, fmt.Errorf("unknown padding %q", padding)
	}

	switch mode {
	case "plain":
	case "static":
		k, err := secure.ParseKey(key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, datagram.WithStaticKey(k))
	case "ecdh":
		opts = append(opts, datagram.WithECDH())
	default:
		return nil, fmt.Errorf("unknown channel mode %q", mode)
	}
	return opts, nil
}
