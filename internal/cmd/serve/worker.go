package serve

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// execWorker runs an external flashing program once per request.
type execWorker struct {
	path    string
	args    []string
	timeout time.Duration
	logger  *log.Logger
}

func (w *execWorker) Run(ctx context.Context, args []string) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	argv := make([]string, 0, len(w.args)+len(args))
	argv = append(argv, w.args...)
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, w.path, argv...)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if w.logger != nil && len(out) > 0 {
		w.logger.Debug("worker output", "output", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", w.path, err)
	}
	return nil
}
