package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type askResponse struct {
	Reply   string `json:"reply"`
	Message string `json:"message"`
}

// newAskCommand returns a small client that posts one message to a running
// server and prints the reply.
func newAskCommand() *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message to a running server and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: timeout}
			reply, err := ask(client, baseURL, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:5000", "server base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "request timeout")
	return cmd
}

func ask(client *http.Client, baseURL, message string) (string, error) {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	resp, err := client.Post(strings.TrimRight(baseURL, "/")+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var out askResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat failed with status %d: %s", resp.StatusCode, out.Message)
	}
	return out.Reply, nil
}
