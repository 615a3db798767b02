package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wbgo/pkg/wikibase"
)

var getCmd = &cobra.Command{
	Use:   "get <entity-id>",
	Short: "Fetch an entity and print it",
	Long:  `Fetch an item or property and print its terms, statements and sitelinks.`,
	Args:  cobra.ExactArgs(1),
	Run:   runGet,
}

var (
	getLang string
	getJSON bool
)

func init() {
	getCmd.Flags().StringVar(&getLang, "lang", "en", "Preferred language for terms")
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Print the raw entity record")
}

func runGet(cmd *cobra.Command, args []string) {
	c := initAPIContext()
	defer c.Close()

	ctx := cmd.Context()

	if getJSON {
		resp, err := c.Client.Call(ctx, "wbgetentities", map[string]any{"ids": []string{args[0]}})
		if err != nil {
			exitError("%v", err)
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, resp, "", "  "); err != nil {
			exitError("malformed response: %v", err)
		}
		fmt.Println(pretty.String())
		return
	}

	ent, err := wikibase.Load(ctx, c.Client, args[0])
	if err != nil {
		exitError("%v", err)
	}

	printEntity(ent)
}

func printEntity(ent *wikibase.Entity) {
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	faint := color.New(color.Faint)

	yellow.Printf("%s", ent.ID())
	if label, ok := ent.Labels.Get(getLang); ok {
		fmt.Printf(" %s", label)
	}
	if ent.Kind() == wikibase.KindProperty {
		faint.Printf(" (%s)", ent.Datatype())
	}
	fmt.Println()

	if desc, ok := ent.Descriptions.Get(getLang); ok {
		fmt.Printf("  %s\n", desc)
	}
	if set := ent.Aliases.Get(getLang); set.Len() > 0 {
		faint.Printf("  also known as: ")
		aliases := set.All()
		sort.Strings(aliases)
		for i, a := range aliases {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(a)
		}
		fmt.Println()
	}

	fmt.Printf("\nLabels: %d, Descriptions: %d, Aliases: %d languages\n",
		ent.Labels.Len(), ent.Descriptions.Len(), ent.Aliases.Len())

	if ent.Claims.Len() > 0 {
		cyan.Printf("\nStatements (%d):\n", ent.Claims.Len())
		props := ent.Claims.Properties()
		sort.Slice(props, func(i, j int) bool { return props[i].ID < props[j].ID })
		for _, p := range props {
			for _, st := range ent.Claims.ByProperty(p).All() {
				fmt.Printf("  %s %s %s\n", p.ID, renderSnak(st.Mainsnak()), renderRank(st.Rank()))
			}
		}
	}

	if ent.Sitelinks != nil && ent.Sitelinks.Len() > 0 {
		cyan.Printf("\nSitelinks (%d):\n", ent.Sitelinks.Len())
		wikis := ent.Sitelinks.Wikis()
		sort.Strings(wikis)
		for _, wiki := range wikis {
			link, _ := ent.Sitelinks.Get(wiki)
			fmt.Printf("  %-16s %s\n", wiki, link.Title)
		}
	}
}

func renderSnak(s wikibase.Snak) string {
	switch v := s.(type) {
	case wikibase.ValueSnak:
		return renderValue(v.Value)
	case wikibase.NoValueSnak:
		return "(no value)"
	case wikibase.SomeValueSnak:
		return "(unknown value)"
	default:
		return "?"
	}
}

func renderValue(v wikibase.Value) string {
	switch val := v.(type) {
	case wikibase.EntityID:
		return val.ID
	case wikibase.String:
		return fmt.Sprintf("%q", string(val))
	case wikibase.MonolingualText:
		return fmt.Sprintf("%q (%s)", val.Text, val.Language)
	case wikibase.GlobeCoordinate:
		return fmt.Sprintf("%g, %g", val.Latitude, val.Longitude)
	case wikibase.Quantity:
		if val.Unit != "" && val.Unit != "1" {
			return fmt.Sprintf("%s %s", val.Amount, val.Unit)
		}
		return val.Amount.String()
	case wikibase.Time:
		return val.Time
	default:
		return "?"
	}
}

func renderRank(r wikibase.Rank) string {
	switch r {
	case wikibase.RankPreferred:
		return "[preferred]"
	case wikibase.RankDeprecated:
		return "[deprecated]"
	default:
		return ""
	}
}
