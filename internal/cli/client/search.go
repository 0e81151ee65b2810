package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// ArticleSearchResponse represents the knowledge search API response.
type ArticleSearchResponse struct {
	Items []Article `json:"items"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search published articles",
		Long:  "Searches published knowledge base articles visible to the current employee by full-text query.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(args[0], limit, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")

	return cmd
}

func runSearch(queryText string, limit int, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("q", queryText)
	query.Set("limit", fmt.Sprintf("%d", limit))

	resp, err := api.Get("/knowledge/search?" + query.Encode())
	if err != nil {
		return fmt.Errorf("failed to search articles: %w", err)
	}

	var searchResp ArticleSearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Items) == 0 {
		fmt.Println("No articles found.")
		return nil
	}

	fmt.Printf("Found %d articles:\n\n", len(searchResp.Items))
	for i, article := range searchResp.Items {
		fmt.Printf("%d. %s\n", i+1, article.Title)
		if len(article.Tags) > 0 {
			fmt.Printf("   Tags: %s\n", strings.Join(article.Tags, ", "))
		}
		fmt.Printf("   ID: %s\n", article.ID)
		if i < len(searchResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
