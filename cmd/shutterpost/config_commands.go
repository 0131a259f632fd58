package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shutterpost/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the resolved configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(flagPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults are shown")
			}
			fmt.Fprintln(out)

			rows := [][]string{
				{"Watch root", cfg.Paths.WatchDir},
				{"Failed root", cfg.Paths.FailedDir},
				{"Log directory", cfg.Paths.LogDir},
				{"Categories", categorySummary(cfg)},
				{"Extensions", strings.Join(cfg.Watcher.FileExtensions, ", ")},
				{"Upload delay", fmt.Sprintf("%ds", cfg.RateLimit.UploadDelay)},
				{"Hourly limit", fmt.Sprintf("%d", cfg.RateLimit.MaxPerHour)},
				{"Daily limit", fmt.Sprintf("%d", cfg.RateLimit.MaxPerDay)},
				{"Burst limit", fmt.Sprintf("%d per %ds", cfg.RateLimit.BurstLimit, cfg.RateLimit.BurstWindowSecs)},
				{"Conversion", yesNo(cfg.Conversion.Enabled)},
				{"Captioning", yesNo(cfg.Captioning.Enabled)},
				{"Blog", orDash(cfg.Blog.Name)},
				{"Blog API key", maskSecret(cfg.Blog.APIKey)},
				{"Post state", cfg.Blog.PostState},
				{"Notifications", yesNo(cfg.Notifications.NtfyTopic != "")},
				{"Failed retention", fmt.Sprintf("%d days", cfg.Cleanup.FailedRetentionDays)},
				{"Log level", cfg.Logging.Level},
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set blog.name and blog.api_key before starting shutterpostd.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func categorySummary(cfg *config.Config) string {
	categories := cfg.ResolveCategories()
	if len(categories) == 0 {
		if cfg.Watcher.AutoDiscover {
			return "(auto-discover)"
		}
		return "-"
	}
	labels := make([]string, 0, len(categories))
	for _, category := range categories {
		labels = append(labels, categoryLabel(category))
	}
	return strings.Join(labels, ", ")
}

func maskSecret(value string) string {
	if value == "" {
		return "-"
	}
	if len(value) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
