package cli

import (
	"github.com/spf13/cobra"

	"wbgo/pkg/wikibase"
)

var aliasCmd = &cobra.Command{
	Use:   "alias <entity-id> <language> <alias>...",
	Short: "Add or remove aliases",
	Long: `Add aliases to an entity in one language, or remove the named ones with
--remove. The whole alias list for that language is written back, other
languages stay untouched.`,
	Args: cobra.MinimumNArgs(3),
	Run:  runAlias,
}

var (
	aliasRemove  bool
	aliasSummary string
)

func init() {
	aliasCmd.Flags().BoolVar(&aliasRemove, "remove", false, "Remove the named aliases instead of adding them")
	aliasCmd.Flags().StringVarP(&aliasSummary, "summary", "m", "", "Edit summary")
}

func runAlias(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	c := initEditContext(ctx)
	defer c.Close()

	ent, err := wikibase.Load(ctx, c.Client, args[0])
	if err != nil {
		exitError("%v", err)
	}

	set := ent.Aliases.Get(args[1])
	for _, alias := range args[2:] {
		if aliasRemove {
			set.Remove(alias)
		} else {
			set.Add(alias)
		}
	}

	saveEntity(ctx, c, ent, aliasSummary)
}
