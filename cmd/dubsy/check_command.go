package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dubsy/internal/preflight"
)

var errChecksFailed = errors.New("one or more checks failed")

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var ping bool

	cmd := &cobra.Command{
		Use:         "check",
		Short:       "Verify directories, media tools and API access",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := ctx.inspectConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Config: %s\n", path)
			} else {
				fmt.Fprintln(out, "Config: defaults (no file found)")
			}

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{PingLLM: ping})
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{result.Name, statusLabel(result.Passed, colorize), result.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows))
			fmt.Fprintf(out, "Transcription provider: %s, WhisperX CUDA: %s\n", cfg.Transcription.Provider, yesNo(cfg.Transcription.CUDAEnabled))

			if !preflight.AllPassed(results) {
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ping, "ping", false, "Send a one-token request to the translation API")
	return cmd
}
