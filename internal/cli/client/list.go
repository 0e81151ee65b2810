package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// Article represents a knowledge article from the API.
type Article struct {
	ID         string   `json:"id"`
	CategoryID string   `json:"category_id,omitempty"`
	Title      string   `json:"title"`
	Content    string   `json:"content,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Views      int64    `json:"views"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

// ArticleListResponse represents the knowledge list API response.
type ArticleListResponse struct {
	Items   []Article `json:"items"`
	Cursor  string    `json:"cursor,omitempty"`
	HasMore bool      `json:"has_more"`
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published articles",
		Long:  "Lists published knowledge base articles visible to the current employee, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of articles")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runList(limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	resp, err := api.Get("/knowledge?" + query.Encode())
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}

	var listResp ArticleListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse article list: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No articles found.")
		return nil
	}

	fmt.Printf("Found %d articles:\n\n", len(listResp.Items))
	for i, article := range listResp.Items {
		fmt.Printf("%d. %s\n", i+1, article.Title)
		if len(article.Tags) > 0 {
			fmt.Printf("   Tags: %s\n", strings.Join(article.Tags, ", "))
		}
		fmt.Printf("   Views: %d\n", article.Views)
		fmt.Printf("   ID: %s\n", article.ID)
		if i < len(listResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}
	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More articles available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}
