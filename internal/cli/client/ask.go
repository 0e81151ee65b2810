package client

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ChatMessage represents one prior turn sent with the question.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the assistant chat API request.
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
}

// ChatSource represents one source the answer was grounded on.
type ChatSource struct {
	Title string `json:"title"`
	ID    string `json:"id"`
	Type  string `json:"type"`
}

// ChatResponse represents the assistant chat API response.
type ChatResponse struct {
	Response string       `json:"response"`
	Sources  []ChatSource `json:"sources"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var historyFile string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant a question",
		Long: `Sends a question to the portal assistant and prints the answer with its sources.

Prior turns of the conversation can be supplied with --history-file, a JSON
array of {"role","content"} objects where role is "user" or "assistant".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			history, err := LoadHistoryFile(historyFile)
			if err != nil {
				return err
			}
			return runAsk(args[0], history, outputJSON)
		},
	}

	cmd.Flags().StringVar(&historyFile, "history-file", "", "JSON file with prior conversation turns")

	return cmd
}

// LoadHistoryFile reads prior conversation turns from a JSON file.
// An empty path means no history.
func LoadHistoryFile(path string) ([]ChatMessage, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}

	for i, turn := range history {
		if turn.Role != "user" && turn.Role != "assistant" {
			return nil, fmt.Errorf("history file: turn %d has unknown role %q", i+1, turn.Role)
		}
	}

	return history, nil
}

func runAsk(question string, history []ChatMessage, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Post("/assistant/chat", ChatRequest{Message: question, History: history})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(resp.Data, &chatResp); err != nil {
		return fmt.Errorf("failed to parse chat response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(chatResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(chatResp.Response)
	if len(chatResp.Sources) > 0 {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Println("Sources:")
		for i, source := range chatResp.Sources {
			fmt.Printf("%d. %s (%s, ID: %s)\n", i+1, source.Title, source.Type, source.ID)
		}
	}

	return nil
}
