// File: cmd/mqctl/watch.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/reactor"
	"github.com/momentics/hioload-mq/socket"
)

func newWatchCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "watch <addr>",
		Short: "Bind a PULL socket and print messages from a reactor loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(api.Pull)
			if err != nil {
				return err
			}
			defer s.TryClose()
			if err := s.Bind(args[0]); err != nil {
				return err
			}
			return watchPull(a, cmd, s, count)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many messages (0 runs until interrupted)")
	return cmd
}

// watchPull drains s from a reactor callback each time it becomes readable.
func watchPull(a *app, cmd *cobra.Command, s *socket.Socket, count int) error {
	r, err := reactor.New(
		reactor.WithTimeout(a.cfg.ReactorTimeout.Duration()),
		reactor.WithLogger(a.logger),
		reactor.WithMetrics(a.metrics),
	)
	if err != nil {
		return err
	}
	defer r.Close()

	done := make(chan error, 1)
	seen := 0
	err = r.Run(func(l *reactor.Loop) {
		l.Watch(s, api.PollIn, func(l *reactor.Loop, p api.Pollable, _ api.Event) {
			for {
				parts, err := s.RecvStrings(socket.RecvOptions{DontWait: true})
				if errors.Is(err, syscall.EAGAIN) {
					return
				}
				if err != nil {
					l.Delete(p)
					done <- err
					return
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " | "))
				if seen++; count > 0 && seen >= count {
					l.Delete(p)
					done <- nil
					return
				}
			}
		})
	})
	if err != nil {
		return err
	}
	a.logger.Debug("watching", zap.Duration("wait", a.cfg.ReactorTimeout.Duration()))

	select {
	case err := <-done:
		return err
	case <-cmd.Context().Done():
		return nil
	}
}
