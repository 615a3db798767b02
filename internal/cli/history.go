package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently made edits",
	Long:  `List the edits this tool has made, newest first, from the local edit log.`,
	Run:   runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of edits to show")
}

func runHistory(cmd *cobra.Command, args []string) {
	c := initStoreContext()
	defer c.Close()

	edits, err := c.DB.RecentEdits(historyLimit)
	if err != nil {
		exitError("failed to read edit log: %v", err)
	}

	if len(edits) == 0 {
		fmt.Println("No edits yet")
		return
	}

	yellow := color.New(color.FgYellow)
	faint := color.New(color.Faint)
	for _, e := range edits {
		faint.Printf("%s  ", e.SavedAt)
		yellow.Printf("%-12s", e.Entity)
		fmt.Printf(" %s", e.Site)
		if e.Summary != "" {
			fmt.Printf("  %s", e.Summary)
		}
		fmt.Println()
	}
}
