package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dubsy/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool
	var interactive bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveTarget(targetPath)
			if err != nil {
				return err
			}

			if _, err := os.Stat(target); err == nil {
				if !overwrite {
					if !interactive {
						return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
					}
					replace, err := defaultPrompter.Confirm(fmt.Sprintf("%s already exists. Overwrite?", target), false)
					if err != nil {
						return fmt.Errorf("prompt cancelled: %w", err)
					}
					if !replace {
						fmt.Fprintln(cmd.OutOrStdout(), "Setup cancelled.")
						return nil
					}
				}
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("check config path: %w", err)
			}

			out := cmd.OutOrStdout()
			if interactive {
				return runInteractiveInit(out, defaultPrompter, target)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set openai.api_key (or export OPENAI_API_KEY) before running dubsy.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for the main settings")
	return cmd
}

func resolveTarget(targetPath string) (string, error) {
	target := strings.TrimSpace(targetPath)
	if target == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return defaultPath, nil
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return expanded, nil
}

func runInteractiveInit(out io.Writer, p prompter, target string) error {
	cfg := config.Default()

	key, err := p.Password("OpenAI API key (leave empty to use OPENAI_API_KEY):")
	if err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	cfg.OpenAI.APIKey = strings.TrimSpace(key)

	provider, err := p.Select("Transcription provider:", []string{config.ProviderOpenAI, config.ProviderWhisperX}, cfg.Transcription.Provider)
	if err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	cfg.Transcription.Provider = provider
	if provider == config.ProviderWhisperX {
		cuda, err := p.Confirm("Run WhisperX on CUDA?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled: %w", err)
		}
		cfg.Transcription.CUDAEnabled = cuda
	}

	model, err := p.Input("Translation model:", cfg.OpenAI.TranslationModel)
	if err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	cfg.OpenAI.TranslationModel = strings.TrimSpace(model)

	tempDir, err := p.Input("Temp directory for uploads and outputs:", cfg.Paths.TempDir)
	if err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	cfg.Paths.TempDir = strings.TrimSpace(tempDir)

	host, err := p.Input("Server host:", cfg.Server.Host)
	if err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	cfg.Server.Host = strings.TrimSpace(host)

	portText, err := p.Input("Server port:", strconv.Itoa(cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	port, err := strconv.Atoi(strings.TrimSpace(portText))
	if err != nil {
		return fmt.Errorf("invalid port %q", portText)
	}
	cfg.Server.Port = port

	if cfg.OpenAI.APIKey != "" {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	encoded, err := config.Encode(&cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := config.WriteSample(target, string(encoded)); err != nil {
		return err
	}
	if cfg.OpenAI.APIKey != "" {
		// The file holds a secret.
		if err := os.Chmod(target, 0o600); err != nil {
			return fmt.Errorf("restrict config permissions: %w", err)
		}
	}
	fmt.Fprintf(out, "Wrote configuration to %s\n", target)
	return nil
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := ctx.inspectConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			shown := *cfg
			shown.OpenAI.APIKey = redact(cfg.OpenAI.APIKey)
			shown.Transcription.HFToken = redact(cfg.Transcription.HFToken)
			encoded, err := config.Encode(&shown)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source = "defaults"
			}
			fmt.Fprintf(out, "# source: %s\n", source)
			_, err = out.Write(encoded)
			return err
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Temp directory: %s\n", cfg.Paths.TempDir)
			fmt.Fprintf(out, "Listening on:   %s\n", cfg.Address())
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func redact(secret string) string {
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:3] + "..." + secret[len(secret)-4:]
	}
}

