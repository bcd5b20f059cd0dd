/*
Copyright © 2026 The tmd Authors
*/

// config.go implements configuration get/set.

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/config"
)

var configLocal bool

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Without arguments, print the effective configuration. With a key, print
that value. With a key and value, set it. Writes go to the global config
(~/.tmd/config.yaml) unless --local targets .tmd/config.yaml.

Keys: author.name, author.email, render.style, limits.max_attachment`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		if len(args) < 2 {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return printConfig(cfg, args)
		}

		scope := config.ScopeGlobal
		if configLocal {
			scope = config.ScopeLocal
		}
		cfg, err := config.LoadScope(scope)
		if err != nil {
			return err
		}
		if err := setConfigKey(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return cfg.SaveScope(scope)
	},
}

func printConfig(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		if JSON() {
			return PrintJSON(map[string]any{
				"author.name":           cfg.Author.Name,
				"author.email":          cfg.Author.Email,
				"render.style":          cfg.Style(),
				"limits.max_attachment": cfg.MaxAttachment(),
			})
		}
		fmt.Fprintf(out, "author.name = %s\n", cfg.Author.Name)
		fmt.Fprintf(out, "author.email = %s\n", cfg.Author.Email)
		fmt.Fprintf(out, "render.style = %s\n", cfg.Style())
		fmt.Fprintf(out, "limits.max_attachment = %d\n", cfg.MaxAttachment())
		return nil
	}

	var v any
	switch args[0] {
	case "author.name":
		v = cfg.Author.Name
	case "author.email":
		v = cfg.Author.Email
	case "render.style":
		v = cfg.Style()
	case "limits.max_attachment":
		v = cfg.MaxAttachment()
	default:
		return fmt.Errorf("unknown config key %q", args[0])
	}
	if JSON() {
		return PrintJSON(map[string]any{args[0]: v})
	}
	fmt.Fprintln(out, v)
	return nil
}

func setConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "author.name":
		cfg.Author.Name = value
	case "author.email":
		cfg.Author.Email = value
	case "render.style":
		cfg.Render.Style = value
	case "limits.max_attachment":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("limits.max_attachment must be an integer: %w", err)
		}
		cfg.Limits.MaxAttachment = &n
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func init() {
	configCmd.Flags().BoolVar(&configLocal, "local", false, "Use .tmd/config.yaml in the current directory")
	rootCmd.AddCommand(configCmd)
}
