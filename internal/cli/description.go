package cli

import (
	"github.com/spf13/cobra"

	"wbgo/pkg/wikibase"
)

var descriptionCmd = &cobra.Command{
	Use:     "description <entity-id> <language> [text]",
	Aliases: []string{"desc"},
	Short:   "Set or remove a description",
	Args:    cobra.RangeArgs(2, 3),
	Run:     runDescription,
}

var (
	descriptionRemove  bool
	descriptionSummary string
)

func init() {
	descriptionCmd.Flags().BoolVar(&descriptionRemove, "remove", false, "Remove the description instead of setting it")
	descriptionCmd.Flags().StringVarP(&descriptionSummary, "summary", "m", "", "Edit summary")
}

func runDescription(cmd *cobra.Command, args []string) {
	if !descriptionRemove && len(args) < 3 {
		exitError("description text missing (or use --remove)")
	}
	if descriptionRemove && len(args) > 2 {
		exitError("--remove takes no description text")
	}

	ctx := cmd.Context()
	c := initEditContext(ctx)
	defer c.Close()

	ent, err := wikibase.Load(ctx, c.Client, args[0])
	if err != nil {
		exitError("%v", err)
	}

	lang := args[1]
	if descriptionRemove {
		ent.Descriptions.Delete(lang)
	} else {
		ent.Descriptions.Set(lang, args[2])
	}

	saveEntity(ctx, c, ent, descriptionSummary)
}
