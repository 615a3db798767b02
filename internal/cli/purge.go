package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <title>...",
	Short: "Purge the rendered cache of pages",
	Args:  cobra.MinimumNArgs(1),
	Run:   runPurge,
}

var purgeLinks bool

func init() {
	purgeCmd.Flags().BoolVar(&purgeLinks, "forcelinkupdate", false, "Also update the links tables")
}

func runPurge(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	c := initEditContext(ctx)
	defer c.Close()

	resp, err := c.Client.Call(ctx, "purge", map[string]any{
		"titles":          args,
		"forcelinkupdate": purgeLinks,
	})
	if err != nil {
		exitError("%v", err)
	}

	var out struct {
		Purge []struct {
			Title   string `json:"title"`
			Purged  bool   `json:"purged"`
			Missing bool   `json:"missing"`
		} `json:"purge"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		exitError("malformed response: %v", err)
	}

	for _, page := range out.Purge {
		switch {
		case page.Missing:
			fmt.Printf("missing  %s\n", page.Title)
		case page.Purged:
			fmt.Printf("purged   %s\n", page.Title)
		default:
			fmt.Printf("skipped  %s\n", page.Title)
		}
	}
}
