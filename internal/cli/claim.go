package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"wbgo/pkg/wikibase"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Manage statements on an entity",
}

var claimAddCmd = &cobra.Command{
	Use:   "add <entity-id> <property> [value]",
	Short: "Add a statement",
	Long: `Add a statement to an entity. The value is parsed according to --kind:

  item      an entity id (Q42)
  string    a plain string
  text      monolingual text, language set with --lang
  quantity  a decimal number
  time      a date like 2018-05-04, day precision
  coord     latitude,longitude in decimal degrees
  auto      item if the value looks like Q42, quantity if numeric, else string

--novalue and --somevalue add a statement without a value.`,
	Args: cobra.RangeArgs(2, 3),
	Run:  runClaimAdd,
}

var claimRemoveCmd = &cobra.Command{
	Use:   "remove <entity-id> <statement-id>",
	Short: "Remove a statement by id",
	Args:  cobra.ExactArgs(2),
	Run:   runClaimRemove,
}

var (
	claimKind      string
	claimLang      string
	claimRank      string
	claimNoValue   bool
	claimSomeValue bool
	claimSummary   string
)

func init() {
	claimAddCmd.Flags().StringVar(&claimKind, "kind", "auto", "Value kind: item, string, text, quantity, time, coord, auto")
	claimAddCmd.Flags().StringVar(&claimLang, "lang", "en", "Language for --kind=text values")
	claimAddCmd.Flags().StringVar(&claimRank, "rank", "", "Statement rank: preferred, normal, deprecated")
	claimAddCmd.Flags().BoolVar(&claimNoValue, "novalue", false, "Assert the property has no value")
	claimAddCmd.Flags().BoolVar(&claimSomeValue, "somevalue", false, "Assert the property has an unknown value")
	claimAddCmd.Flags().StringVarP(&claimSummary, "summary", "m", "", "Edit summary")
	claimRemoveCmd.Flags().StringVarP(&claimSummary, "summary", "m", "", "Edit summary")

	claimCmd.AddCommand(claimAddCmd)
	claimCmd.AddCommand(claimRemoveCmd)
}

func runClaimAdd(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	c := initEditContext(ctx)
	defer c.Close()

	ent, err := wikibase.Load(ctx, c.Client, args[0])
	if err != nil {
		exitError("%v", err)
	}

	prop, err := wikibase.NewPropertyID(ent.Site(), args[1])
	if err != nil {
		exitError("%v", err)
	}

	snak, err := buildSnak(ent.Site(), prop, args)
	if err != nil {
		exitError("%v", err)
	}

	st := wikibase.NewStatement(snak)
	if claimRank != "" {
		rank, err := parseRank(claimRank)
		if err != nil {
			exitError("%v", err)
		}
		st.SetRank(rank)
	}
	ent.Claims.Add(st)

	saveEntity(ctx, c, ent, claimSummary)
}

func runClaimRemove(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	c := initEditContext(ctx)
	defer c.Close()

	ent, err := wikibase.Load(ctx, c.Client, args[0])
	if err != nil {
		exitError("%v", err)
	}

	var target *wikibase.Statement
	for _, st := range ent.Claims.All() {
		if st.ID() == args[1] {
			target = st
			break
		}
	}
	if target == nil {
		exitError("no statement %s on %s", args[1], ent.ID())
	}
	ent.Claims.Remove(target)

	saveEntity(ctx, c, ent, claimSummary)
}

func buildSnak(site string, prop wikibase.EntityID, args []string) (wikibase.Snak, error) {
	switch {
	case claimNoValue && claimSomeValue:
		return nil, fmt.Errorf("--novalue and --somevalue are mutually exclusive")
	case claimNoValue:
		return wikibase.NewNoValueSnak(prop)
	case claimSomeValue:
		return wikibase.NewSomeValueSnak(prop)
	case len(args) < 3:
		return nil, fmt.Errorf("value missing (or use --novalue / --somevalue)")
	}

	value, err := parseValue(site, args[2], claimKind)
	if err != nil {
		return nil, err
	}
	return wikibase.NewValueSnak(prop, value)
}

// parseValue turns a command-line string into a typed datavalue.
func parseValue(site, raw, kind string) (wikibase.Value, error) {
	switch kind {
	case "item":
		return wikibase.NewItemID(site, raw)
	case "string":
		return wikibase.String(raw), nil
	case "text":
		return wikibase.MonolingualText{Text: raw, Language: claimLang}, nil
	case "quantity":
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q: %w", raw, err)
		}
		return wikibase.NewQuantity(amount), nil
	case "time":
		return wikibase.NewTime(raw, wikibase.PrecisionDay)
	case "coord":
		return parseCoordinate(raw)
	case "auto":
		if id, err := wikibase.NewItemID(site, raw); err == nil {
			return id, nil
		}
		if amount, err := decimal.NewFromString(raw); err == nil {
			return wikibase.NewQuantity(amount), nil
		}
		return wikibase.String(raw), nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", kind)
	}
}

func parseCoordinate(raw string) (wikibase.Value, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("coordinate %q is not latitude,longitude", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	return wikibase.GlobeCoordinate{
		Latitude:  lat,
		Longitude: lon,
		Precision: wikibase.Arcsecond,
		Globe:     wikibase.GlobeEarth,
	}, nil
}

func parseRank(s string) (wikibase.Rank, error) {
	switch wikibase.Rank(s) {
	case wikibase.RankPreferred, wikibase.RankNormal, wikibase.RankDeprecated:
		return wikibase.Rank(s), nil
	default:
		return "", fmt.Errorf("unknown rank %q", s)
	}
}
