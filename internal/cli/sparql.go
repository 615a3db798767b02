package cli

import (
	"crypto/md5"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wbgo/pkg/sparql"
)

var sparqlCmd = &cobra.Command{
	Use:   "sparql [query]",
	Short: "Run a SPARQL query against the query service",
	Long: `Run a SELECT query against the configured SPARQL endpoint. The query
comes from the argument or from --file. Responses are cached locally until
the configured TTL expires.

With --resolve, the entities bound to the named variable are fetched from
the action API and printed with their labels instead of the raw rows.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSparql,
}

var (
	sparqlFile    string
	sparqlResolve string
	sparqlNoCache bool
	sparqlLang    string
)

func init() {
	sparqlCmd.Flags().StringVarP(&sparqlFile, "file", "f", "", "Read the query from a file")
	sparqlCmd.Flags().StringVar(&sparqlResolve, "resolve", "", "Fetch the entities bound to this variable")
	sparqlCmd.Flags().BoolVar(&sparqlNoCache, "no-cache", false, "Bypass the local response cache")
	sparqlCmd.Flags().StringVar(&sparqlLang, "lang", "en", "Label language for --resolve output")
}

func runSparql(cmd *cobra.Command, args []string) {
	query, err := sparqlQuery(args)
	if err != nil {
		exitError("%v", err)
	}

	ctx := cmd.Context()
	c := initAPIContext()
	defer c.Close()

	client := sparql.New(c.Config.SPARQL.Endpoint, c.Cache, c.Tracker, slog.Default())

	cacheKey := ""
	if !sparqlNoCache {
		cacheKey = fmt.Sprintf("sparql_%x", md5.Sum([]byte(query)))
	}

	result, err := client.Query(ctx, query, cacheKey)
	if err != nil {
		exitError("%v", err)
	}

	if sparqlResolve != "" {
		resolveAndPrint(cmd, c, result)
		return
	}

	printResult(result)
}

// sparqlQuery returns the query text from the argument or --file.
func sparqlQuery(args []string) (string, error) {
	if sparqlFile != "" {
		if len(args) > 0 {
			return "", fmt.Errorf("pass the query as an argument or via --file, not both")
		}
		data, err := os.ReadFile(sparqlFile)
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return string(data), nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("query missing (argument or --file)")
	}
	return args[0], nil
}

func printResult(result *sparql.Result) {
	if len(result.Bindings) == 0 {
		fmt.Println("No results")
		return
	}

	color.New(color.FgCyan).Println(strings.Join(result.Vars, "\t"))
	for _, row := range result.Bindings {
		fields := make([]string, len(result.Vars))
		for i, name := range result.Vars {
			fields[i] = row[name].Value
		}
		fmt.Println(strings.Join(fields, "\t"))
	}
	fmt.Printf("\n%d rows\n", len(result.Bindings))
}

func resolveAndPrint(cmd *cobra.Command, c *cmdContext, result *sparql.Result) {
	ids := result.EntityIDs(sparqlResolve)
	if len(ids) == 0 {
		fmt.Printf("No entities bound to ?%s\n", sparqlResolve)
		return
	}

	resolver := sparql.NewResolver(c.Client, c.Cache, slog.Default())
	entities, err := resolver.Resolve(cmd.Context(), ids)
	if err != nil {
		exitError("%v", err)
	}

	resolved := make([]string, 0, len(entities))
	for id := range entities {
		resolved = append(resolved, id)
	}
	sort.Strings(resolved)

	yellow := color.New(color.FgYellow)
	for _, id := range resolved {
		ent := entities[id]
		yellow.Printf("%-12s", id)
		if label, ok := ent.Labels.Get(sparqlLang); ok {
			fmt.Printf(" %s", label)
		}
		fmt.Println()
	}
	fmt.Printf("\n%d of %d entities resolved\n", len(entities), len(ids))
}
