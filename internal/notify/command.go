// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	shellquote "github.com/Hellseher/go-shellquote"
	"github.com/rs/zerolog/log"
)

const commandTimeout = 30 * time.Second

// CommandSink runs an external program per notification, for example
// `notify-send "{title}" "{body}"`. The template is split like a shell
// would but never passed to one.
type CommandSink struct {
	program string
	args    []string
	run     func(ctx context.Context, name string, args ...string) error

	inflight sync.WaitGroup
}

func NewCommandSink(template string) (*CommandSink, error) {
	parts, err := shellquote.Split(template)
	if err != nil {
		return nil, fmt.Errorf("invalid notify command: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("notify command is empty")
	}
	return &CommandSink{program: parts[0], args: parts[1:], run: runCommand}, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s *CommandSink) expand(title, body string) []string {
	r := strings.NewReplacer("{title}", title, "{body}", body)
	args := make([]string, len(s.args))
	for i, a := range s.args {
		args[i] = r.Replace(a)
	}
	return args
}

// Schedule starts the program in the background. The context only carries
// values; the run has its own timeout so it outlives the caller.
func (s *CommandSink) Schedule(ctx context.Context, title, body string) {
	args := s.expand(title, body)

	log.Debug().Str("command", shellquote.Join(append([]string{s.program}, args...)...)).Msg("Running notify command")

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commandTimeout)
		defer cancel()

		if err := s.run(runCtx, s.program, args...); err != nil {
			log.Error().Err(err).Str("program", s.program).Msg("Notify command failed")
		}
	}()
}

// Wait blocks until every scheduled command has exited or ctx is done.
func (s *CommandSink) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
