package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/dialscan/internal/config"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the preferences file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective preferences and where they are stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		p, err := preferences()
		if err != nil {
			return err
		}

		source := path
		if _, err := os.Stat(path); os.IsNotExist(err) {
			source = path + " (not created, showing defaults)"
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", source)

		data, err := (&config.Registry{Version: config.CurrentVersion, Preferences: p}).Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a preferences file with the defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		written, err := config.CreateDefaultConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default preferences to %s\n", written)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
