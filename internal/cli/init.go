package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wbgo/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long:  `Create the config file with commented defaults. Does nothing if it already exists.`,
	Run:   runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file already exists: %s\n", configPath)
		return
	}
	if err := config.GenerateDefault(configPath); err != nil {
		exitError("failed to generate config: %v", err)
	}
	fmt.Printf("Config file generated: %s\n", configPath)
}
