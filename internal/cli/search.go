package cmd

import (
	"fmt"
	"os"

	"github.com/cdoc/crawldoc/internal/indexing"
	"github.com/cdoc/crawldoc/internal/search"
	"github.com/spf13/cobra"
)

var (
	searchIndexDir string
	searchLimit    int
	searchOffset   int
	searchHighlight bool
)

// searchCmd queries an already-built index (produced by a prior `crawl` run)
// and prints ranked results. It never writes to the index.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a previously built documentation index.",
	Long: `search runs a query against the .search_index directory produced by a
prior crawl and prints ranked results with excerpts.

Query syntax supports bare terms, "quoted phrases", field:value lookups,
term~1 fuzzy matching, and AND/OR boolean combinations.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		idx, err := indexing.OpenIndex(searchIndexDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening index at %s: %s\n", searchIndexDir, err)
			os.Exit(1)
		}
		defer idx.Close()

		engine := search.New(idx)
		results, err := engine.Execute(args[0], searchLimit, searchOffset, searchHighlight)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running search: %s\n", err)
			os.Exit(1)
		}

		if len(results.Hits) == 0 {
			fmt.Println("No results.")
			return
		}

		fmt.Printf("%d result(s), showing %d-%d:\n\n", results.TotalCount, results.Offset+1, results.Offset+len(results.Hits))
		for i, hit := range results.Hits {
			fmt.Printf("%d. %s  (score %.3f)\n   %s\n", results.Offset+i+1, hit.Title, hit.Score, hit.URL)
			if hit.Excerpt != "" {
				fmt.Printf("   %s\n", hit.Excerpt)
			}
			fmt.Println()
		}
		if results.NextOffset != nil {
			fmt.Printf("More results available with --offset %d\n", *results.NextOffset)
		}
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchIndexDir, "index-dir", "output/.search_index","path to the search index directory")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results to return")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "result offset for pagination")
	searchCmd.Flags().BoolVar(&searchHighlight, "highlight", false, "highlight matching terms in excerpts")
	rootCmd.AddCommand(searchCmd)
}
