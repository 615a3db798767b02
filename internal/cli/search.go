package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search entities by label and alias",
	Args:  cobra.ExactArgs(1),
	Run:   runSearch,
}

var (
	searchLang  string
	searchType  string
	searchLimit int
)

func init() {
	searchCmd.Flags().StringVar(&searchLang, "lang", "en", "Search language")
	searchCmd.Flags().StringVar(&searchType, "type", "item", "Entity type: item or property")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) {
	c := initAPIContext()
	defer c.Close()

	resp, err := c.Client.Call(cmd.Context(), "wbsearchentities", map[string]any{
		"search":   args[0],
		"language": searchLang,
		"uselang":  searchLang,
		"type":     searchType,
		"limit":    searchLimit,
	})
	if err != nil {
		exitError("%v", err)
	}

	var out struct {
		Search []struct {
			ID          string `json:"id"`
			Label       string `json:"label"`
			Description string `json:"description"`
		} `json:"search"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		exitError("malformed response: %v", err)
	}

	if len(out.Search) == 0 {
		fmt.Println("No matches")
		return
	}

	yellow := color.New(color.FgYellow)
	faint := color.New(color.Faint)
	for _, hit := range out.Search {
		yellow.Printf("%-12s", hit.ID)
		fmt.Printf(" %s", hit.Label)
		if hit.Description != "" {
			faint.Printf("  %s", hit.Description)
		}
		fmt.Println()
	}
}
