package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kmetrics/internal/config"
	"kmetrics/internal/errors"
)

var (
	initPath  string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default kmetrics.toml",
	Long:  "Creates a config file with the default settings in the current directory",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initPath, "path", config.FileName+".toml", "Config file to write")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(initPath); err == nil && !initForce {
		// Already initialized is success.
		fmt.Fprintf(out, "Config already exists at %s\n", initPath)
		fmt.Fprintln(out, "Run 'kmetrics init --force' to overwrite it.")
		return nil
	}

	if err := config.DefaultConfig().Save(initPath); err != nil {
		return errors.New(errors.InternalError, "failed to write config file", err)
	}

	fmt.Fprintf(out, "Wrote %s\n", initPath)
	return nil
}
