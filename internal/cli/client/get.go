package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get <article_id>",
		Short:   "Get an article by ID",
		Long:    "Retrieves a knowledge base article and displays the full content.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(args[0], outputJSON)
		},
	}

	return cmd
}

func runGet(articleID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/knowledge/%s", articleID))
	if err != nil {
		return fmt.Errorf("failed to get article: %w", err)
	}

	var article Article
	if err := json.Unmarshal(resp.Data, &article); err != nil {
		return fmt.Errorf("failed to parse article: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(article, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Title: %s\n", article.Title)
	if article.CategoryID != "" {
		fmt.Printf("Category: %s\n", article.CategoryID)
	}
	if len(article.Tags) > 0 {
		fmt.Printf("Tags: %v\n", article.Tags)
	}
	fmt.Printf("Views: %d\n", article.Views)
	fmt.Printf("Created: %s\n", article.CreatedAt)
	fmt.Printf("Updated: %s\n", article.UpdatedAt)
	fmt.Println()
	fmt.Println("--- Content ---")
	fmt.Println(article.Content)

	return nil
}
