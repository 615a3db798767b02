package cli

import (
	"github.com/spf13/cobra"

	"wbgo/pkg/wikibase"
)

var sitelinkCmd = &cobra.Command{
	Use:   "sitelink <item-id> <wiki> [title]",
	Short: "Set or remove a sitelink",
	Long: `Link an item to a page on a client wiki (e.g. enwiki), or remove the
link with --remove. Badges are item ids like Q17437796 (featured article).`,
	Args: cobra.RangeArgs(2, 3),
	Run:  runSitelink,
}

var (
	sitelinkRemove  bool
	sitelinkBadges  []string
	sitelinkSummary string
)

func init() {
	sitelinkCmd.Flags().BoolVar(&sitelinkRemove, "remove", false, "Remove the sitelink instead of setting it")
	sitelinkCmd.Flags().StringSliceVar(&sitelinkBadges, "badge", nil, "Badge item id (repeatable)")
	sitelinkCmd.Flags().StringVarP(&sitelinkSummary, "summary", "m", "", "Edit summary")
}

func runSitelink(cmd *cobra.Command, args []string) {
	if !sitelinkRemove && len(args) < 3 {
		exitError("page title missing (or use --remove)")
	}
	if sitelinkRemove && len(args) > 2 {
		exitError("--remove takes no page title")
	}

	ctx := cmd.Context()
	c := initEditContext(ctx)
	defer c.Close()

	ent, err := wikibase.LoadItem(ctx, c.Client, args[0])
	if err != nil {
		exitError("%v", err)
	}

	wiki := args[1]
	if sitelinkRemove {
		ent.Sitelinks.Delete(wiki)
	} else {
		var badges []wikibase.EntityID
		for _, b := range sitelinkBadges {
			badge, err := wikibase.NewItemID(ent.Site(), b)
			if err != nil {
				exitError("badge: %v", err)
			}
			badges = append(badges, badge)
		}
		ent.Sitelinks.Set(wikibase.Sitelink{Site: wiki, Title: args[2], Badges: badges})
	}

	saveEntity(ctx, c, ent, sitelinkSummary)
}
