package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type probe struct {
	Endpoint string `json:"endpoint"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail"`
	Latency  string `json:"latency"`
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the device answers on each read endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(newLogger())
			ctx := cmd.Context()

			checks := []struct {
				endpoint string
				run      func(context.Context) (string, error)
			}{
				{"/api/stats", func(ctx context.Context) (string, error) {
					s, err := client.Stats(ctx)
					if err != nil {
						return "", err
					}
					return fmt.Sprintf("%d cards, %d accesses", s.TotalCards, s.TotalAccesses), nil
				}},
				{"/api/cards", func(ctx context.Context) (string, error) {
					c, err := client.Cards(ctx)
					return fmt.Sprintf("%d cards", len(c)), err
				}},
				{"/api/logs", func(ctx context.Context) (string, error) {
					l, err := client.Logs(ctx)
					return fmt.Sprintf("%d entries", len(l)), err
				}},
			}

			results := make([]probe, len(checks))
			var g errgroup.Group
			for i, c := range checks {
				g.Go(func() error {
					start := time.Now()
					detail, err := c.run(ctx)
					results[i] = probe{Endpoint: c.endpoint, OK: err == nil, Detail: detail, Latency: time.Since(start).Round(time.Millisecond).String()}
					if err != nil {
						results[i].Detail = err.Error()
					}
					return nil
				})
			}
			g.Wait() //nolint:errcheck

			failed := 0
			rows := make([][]string, len(results))
			for i, r := range results {
				status := "ok"
				if !r.OK {
					status = "FAIL"
					failed++
				}
				rows[i] = []string{r.Endpoint, status, r.Latency, r.Detail}
			}
			printRows([]string{"ENDPOINT", "STATUS", "LATENCY", "DETAIL"}, rows, results)
			if failed > 0 {
				return fmt.Errorf("%d of %d endpoints failed at %s", failed, len(results), deviceURL())
			}
			return nil
		},
	}
}
