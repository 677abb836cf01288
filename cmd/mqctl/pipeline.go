// File: cmd/mqctl/pipeline.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/socket"
)

func newPushCmd(a *app) *cobra.Command {
	var multi bool
	cmd := &cobra.Command{
		Use:   "push <addr> <message>...",
		Short: "Connect a PUSH socket and send messages",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(api.Push)
			if err != nil {
				return err
			}
			defer s.TryClose()
			if err := s.Connect(args[0]); err != nil {
				return err
			}
			if multi {
				return s.SendStrings(args[1:], socket.SendOptions{})
			}
			for _, m := range args[1:] {
				if err := s.SendString(m, socket.SendOptions{}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&multi, "multi", false, "send all messages as frames of one message")
	return cmd
}

func newPullCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "pull <addr>",
		Short: "Bind a PULL socket and print received messages",
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
			for i := 0; count <= 0 || i < count; i++ {
				if err := cmd.Context().Err(); err != nil {
					return nil
				}
				parts, err := s.RecvStrings(socket.RecvOptions{})
				if errors.Is(err, api.ErrOperationTimeout) {
					i--
					continue
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " | "))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many messages (0 runs forever)")
	return cmd
}

// runPushPull sends two messages through a PUSH/PULL pair on addr and
// prints what the PULL side receives.
func runPushPull(a *app, cmd *cobra.Command, addr string) error {
	writer, err := a.open(api.Push)
	if err != nil {
		return err
	}
	defer writer.TryClose()
	reader, err := a.open(api.Pull)
	if err != nil {
		return err
	}
	defer reader.TryClose()

	if err := reader.Bind(addr); err != nil {
		return err
	}
	if err := writer.Connect(addr); err != nil {
		return err
	}
	for _, m := range []string{"My Message!", "My Second Message!"} {
		if err := writer.SendString(m, socket.SendOptions{}); err != nil {
			return err
		}
	}
	for range 2 {
		got, err := reader.RecvString(socket.RecvOptions{})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%q\n", got)
	}
	return nil
}

func newDemoCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a PUSH/PULL round trip inside this process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPushPull(a, cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "inproc://demo", "endpoint shared by both sockets")
	return cmd
}
