package datagram

import (
	"context"
	"errors"
	"strings"

	"github.com/moffa90/go-bflb/protocol"
)

// CommandKind distinguishes a workflow request from the stop sentinel.
type CommandKind int

const (
	// CommandRun asks the worker to run with Args
	CommandRun CommandKind = iota

	// CommandStop ends the service loop
	CommandStop
)

func (k CommandKind) String() string {
	if k == CommandStop {
		return "stop"
	}
	return "run"
}

// Command is a parsed command line.
type Command struct {
	Kind CommandKind
	Args []string
}

// ErrEmptyCommand is returned for a blank command line.
var ErrEmptyCommand = errors.New("empty command")

// ParseCommand splits a command line on whitespace. A line consisting of
// the single token "stop" is the stop sentinel.
func ParseCommand(line string) (Command, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return Command{}, ErrEmptyCommand
	}
	if len(args) == 1 && args[0] == protocol.StopCommand {
		return Command{Kind: CommandStop}, nil
	}
	return Command{Kind: CommandRun, Args: args}, nil
}

// Worker performs the flashing workflow for one request.
type Worker interface {
	Run(ctx context.Context, args []string) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, args []string) error

// Run calls f.
func (f WorkerFunc) Run(ctx context.Context, args []string) error {
	return f(ctx, args)
}
