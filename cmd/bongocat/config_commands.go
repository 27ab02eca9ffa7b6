package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bongocat/internal/config"
)

func newConfigCommand(configFlag *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand(configFlag))
	configCmd.AddCommand(newConfigShowCommand(configFlag))
	configCmd.AddCommand(newConfigValidateCommand(configFlag))

	return configCmd
}

func newConfigInitCommand(configFlag *string) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(*configFlag)
			if target == "" {
				target = config.DefaultConfigPath()
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, report, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if !report.Exists {
				fmt.Fprintf(out, "No config file at %s; showing defaults.\n", report.Path)
			}

			titler := cases.Title(language.English)
			animation := config.AnimationAt(snap.AnimationIndex)
			rows := [][]string{
				{"screen_width", strconv.Itoa(snap.ScreenWidth)},
				{"overlay_height", strconv.Itoa(snap.OverlayHeight)},
				{"overlay_position", string(snap.OverlayPosition)},
				{"layer", string(snap.Layer)},
				{"overlay_opacity", strconv.Itoa(snap.OverlayOpacity)},
				{"cat_x_offset", strconv.Itoa(snap.CatXOffset)},
				{"cat_y_offset", strconv.Itoa(snap.CatYOffset)},
				{"cat_height", strconv.Itoa(snap.CatHeight)},
				{"padding_x", strconv.Itoa(snap.PaddingX)},
				{"padding_y", strconv.Itoa(snap.PaddingY)},
				{"animation", titler.String(animation.Name)},
				{"idle_frame", strconv.Itoa(snap.IdleFrame)},
				{"fps", strconv.Itoa(snap.FPS)},
				{"keypress_duration", fmt.Sprintf("%d ms", snap.KeypressDuration)},
				{"test_animation_duration", fmt.Sprintf("%d ms", snap.TestAnimationDuration)},
				{"test_animation_interval", fmt.Sprintf("%d s", snap.TestAnimationInterval)},
				{"invert_color", strconv.FormatBool(snap.InvertColor)},
				{"crop_sprite", strconv.FormatBool(snap.CropSprite)},
				{"enable_debug", strconv.FormatBool(snap.EnableDebug)},
				{"keyboard_devices", strings.Join(snap.Devices, ", ")},
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, rows))

			if len(report.Warnings) > 0 {
				fmt.Fprintf(out, "\n%d warning(s):\n", len(report.Warnings))
				for _, w := range report.Warnings {
					printWarning(out, report.Path, w)
				}
			}
			return nil
		},
	}
}

func newConfigValidateCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, report, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if !report.Exists {
				fmt.Fprintf(out, "No config file at %s; defaults apply.\n", report.Path)
				return nil
			}
			if len(report.Warnings) == 0 {
				fmt.Fprintf(out, "Configuration at %s is valid.\n", report.Path)
				return nil
			}
			fmt.Fprintf(out, "Configuration at %s loaded with %d warning(s):\n", report.Path, len(report.Warnings))
			for _, w := range report.Warnings {
				printWarning(out, report.Path, w)
			}
			return nil
		},
	}
}

func printWarning(out io.Writer, path string, w config.Warning) {
	if w.Line > 0 {
		fmt.Fprintf(out, "  %s:%d: %s\n", path, w.Line, w.Message)
		return
	}
	fmt.Fprintf(out, "  %s: %s\n", path, w.Message)
}
