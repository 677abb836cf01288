// File: cmd/mqctl/hello.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/socket"
)

func newHWServerCmd(a *app) *cobra.Command {
	var (
		addr  string
		count int
		work  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "hwserver",
		Short: "Hello World server: answer every request with World",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(api.Rep)
			if err != nil {
				return err
			}
			defer s.TryClose()
			if err := s.Bind(addr); err != nil {
				return err
			}
			return serveHello(cmd, s, count, work)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "tcp://*:5555", "endpoint to bind")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many requests (0 runs forever)")
	cmd.Flags().DurationVar(&work, "work", time.Second, "simulated work per request")
	return cmd
}

func serveHello(cmd *cobra.Command, s *socket.Socket, count int, work time.Duration) error {
	for served := 0; count <= 0 || served < count; {
		if cmd.Context().Err() != nil {
			return nil
		}
		req, err := s.RecvString(socket.RecvOptions{})
		if errors.Is(err, api.ErrOperationTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Received: %s\n", req)
		time.Sleep(work)
		if err := s.SendString("World", socket.SendOptions{}); err != nil {
			return err
		}
		served++
	}
	return nil
}

func newHWClientCmd(a *app) *cobra.Command {
	var (
		addr     string
		requests int
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "hwclient",
		Short: "Hello World client: send requests and print replies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(api.Req)
			if err != nil {
				return err
			}
			defer s.TryClose()
			if err := s.Connect(addr); err != nil {
				return err
			}
			return requestHello(cmd, s, requests, timeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "tcp://localhost:5555", "endpoint to connect")
	cmd.Flags().IntVarP(&requests, "requests", "n", 10, "number of requests")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "bound on each reply")
	return cmd
}

func requestHello(cmd *cobra.Command, s *socket.Socket, requests int, timeout time.Duration) error {
	out := cmd.OutOrStdout()
	for i := range requests {
		fmt.Fprintf(out, "Sending Hello %d...\n", i)
		if err := s.SendString(fmt.Sprintf("Hello %d", i), socket.SendOptions{}); err != nil {
			return err
		}
		reply, err := s.RecvString(socket.RecvOptions{Timeout: timeout})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Received: %s\n", reply)
	}
	return nil
}
