// Command newchat asks a running client to open a fresh chat session via
// its local trigger API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	triggerURL string
	chatType   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newchat",
		Short: "Open a new chat session in the running assistant",
		Long: `newchat posts to the assistant's local trigger endpoint and prints the
response. The assistant must already be running; nothing is started on
your behalf.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestNewChat(triggerURL, chatType)
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&triggerURL, "url", "http://127.0.0.1:6225", "trigger API base URL")
	rootCmd.Flags().StringVar(&chatType, "type", "regular", "chat type (regular or superagent)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func requestNewChat(baseURL, chatType string) error {
	if chatType != "regular" && chatType != "superagent" {
		return fmt.Errorf("unknown chat type %q (want regular or superagent)", chatType)
	}

	body, err := json.Marshal(map[string]string{"chatType": chatType})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(baseURL+"/new_chat", "application/json", bytes.NewReader(body))
	if err != nil {
		color.Red("Could not reach the assistant at %s.", baseURL)
		fmt.Println("Is the application running?")
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusCreated {
		color.Green("%s", resp.Status)
	} else {
		color.Yellow("%s", resp.Status)
	}
	fmt.Println(string(payload))
	return nil
}
