package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wbgo/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the wbctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wbctl %s\n", version.Version)
	},
}
