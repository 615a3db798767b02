package cli

import (
	"github.com/spf13/cobra"

	"wbgo/pkg/wikibase"
)

var labelCmd = &cobra.Command{
	Use:   "label <entity-id> <language> [text]",
	Short: "Set or remove a label",
	Long: `Set the label of an entity in one language, or remove it with --remove.
Only the changed label is sent; everything else stays untouched.`,
	Args: cobra.RangeArgs(2, 3),
	Run:  runLabel,
}

var (
	labelRemove  bool
	labelSummary string
)

func init() {
	labelCmd.Flags().BoolVar(&labelRemove, "remove", false, "Remove the label instead of setting it")
	labelCmd.Flags().StringVarP(&labelSummary, "summary", "m", "", "Edit summary")
}

func runLabel(cmd *cobra.Command, args []string) {
	if !labelRemove && len(args) < 3 {
		exitError("label text missing (or use --remove)")
	}
	if labelRemove && len(args) > 2 {
		exitError("--remove takes no label text")
	}

	ctx := cmd.Context()
	c := initEditContext(ctx)
	defer c.Close()

	ent, err := wikibase.Load(ctx, c.Client, args[0])
	if err != nil {
		exitError("%v", err)
	}

	lang := args[1]
	if labelRemove {
		ent.Labels.Delete(lang)
	} else {
		ent.Labels.Set(lang, args[2])
	}

	saveEntity(ctx, c, ent, labelSummary)
}
