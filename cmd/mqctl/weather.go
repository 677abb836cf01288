// File: cmd/mqctl/weather.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/socket"
)

func newWUServerCmd(a *app) *cobra.Command {
	var (
		addrs []string
		count int
		quiet bool
	)
	cmd := &cobra.Command{
		Use:   "wuserver",
		Short: "Weather update server: publish random readings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(api.Pub)
			if err != nil {
				return err
			}
			defer s.TryClose()
			for _, addr := range addrs {
				if err := s.Bind(addr); err != nil {
					return err
				}
			}
			return publishWeather(cmd, s, count, quiet)
		},
	}
	cmd.Flags().StringSliceVar(&addrs, "addr", []string{"tcp://*:5556"}, "endpoints to bind")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many updates (0 runs forever)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not echo updates")
	return cmd
}

func weatherUpdate() string {
	zipcode := rand.IntN(10_000) + 5_000
	temperature := rand.IntN(215) - 80
	relhumidity := rand.IntN(50) + 10
	return fmt.Sprintf("%05d %d %d", zipcode, temperature, relhumidity)
}

func publishWeather(cmd *cobra.Command, s *socket.Socket, count int, quiet bool) error {
	for i := 0; count <= 0 || i < count; i++ {
		if cmd.Context().Err() != nil {
			return nil
		}
		update := weatherUpdate()
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "> %s\n", update)
		}
		if err := s.SendString(update, socket.SendOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func newWUClientCmd(a *app) *cobra.Command {
	var (
		addr    string
		updates int
	)
	cmd := &cobra.Command{
		Use:   "wuclient [zipcode-filter]",
		Short: "Weather update client: average temperature for a zipcode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := "10001 "
			if len(args) > 0 {
				filter = args[0]
			}
			s, err := a.open(api.Sub)
			if err != nil {
				return err
			}
			defer s.TryClose()
			if err := s.Connect(addr); err != nil {
				return err
			}
			if !s.SetOption(api.Subscribe, filter) {
				return fmt.Errorf("%w: cannot subscribe to %q", api.ErrInvalidArgument, filter)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Collecting updates from weather server...")
			avg, err := averageTemperature(cmd, s, updates)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nAverage temperature for zipcode '%s' was %dF\n", filter, avg)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "tcp://localhost:5556", "endpoint to connect")
	cmd.Flags().IntVarP(&updates, "updates", "n", 100, "updates to average")
	return cmd
}

func averageTemperature(cmd *cobra.Command, s *socket.Socket, updates int) (int, error) {
	if updates <= 0 {
		return 0, fmt.Errorf("%w: updates must be positive", api.ErrInvalidArgument)
	}
	total := 0
	for got := 0; got < updates; {
		if err := cmd.Context().Err(); err != nil {
			return 0, err
		}
		update, err := s.RecvString(socket.RecvOptions{})
		if errors.Is(err, api.ErrOperationTimeout) {
			continue
		}
		if err != nil {
			return 0, err
		}
		fields := strings.Fields(update)
		if len(fields) < 2 {
			continue
		}
		temp, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		total += temp
		got++
		fmt.Fprint(cmd.OutOrStdout(), ".")
	}
	return total / updates, nil
}
