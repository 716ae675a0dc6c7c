package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mkravets/voicelog/internal/config"
)

// conversationEntry mirrors the server's conversation log JSON.
type conversationEntry struct {
	ID        int64    `json:"id"`
	Text      string   `json:"text"`
	Timestamp string   `json:"timestamp"`
	Keywords  []string `json:"keywords"`
}

type transcribeResult struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Keywords []struct {
		Word  string  `json:"word"`
		Score float64 `json:"score"`
	} `json:"keywords"`
}

// --- transcribe ---

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [file...]",
	Short: "Transcribe audio files or log text as a conversation",
	Long: `Transcribe audio files or log text as a conversation.

Examples:
  voicelog transcribe meeting.wav
  voicelog transcribe --jobs 4 monday.wav tuesday.wav wednesday.wav
  voicelog transcribe --text "remember to review the budget proposal"
  voicelog transcribe --text "standup notes" --keywords standup,notes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		keywordsStr, _ := cmd.Flags().GetString("keywords")
		jobs, _ := cmd.Flags().GetInt("jobs")

		if text == "" && len(args) == 0 {
			return fmt.Errorf("either --text or at least one audio file is required")
		}
		if text != "" && len(args) > 0 {
			return fmt.Errorf("--text cannot be combined with audio files")
		}

		var kws []string
		if keywordsStr != "" {
			kws = strings.Split(keywordsStr, ",")
			for i := range kws {
				kws[i] = strings.TrimSpace(kws[i])
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if text != "" {
			result, err := submitTranscription(cmd.Context(), client, map[string]any{
				"text":     text,
				"keywords": kws,
			})
			if err != nil {
				return err
			}
			printTranscription("text", result)
			return nil
		}

		if jobs < 1 {
			jobs = 1
		}

		var mu sync.Mutex
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(jobs)
		for _, path := range args {
			g.Go(func() error {
				result, err := submitAudioFile(ctx, client, path, kws)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					printError("%s: %v", path, err)
					return err
				}
				printTranscription(path, result)
				return nil
			})
		}
		return g.Wait()
	},
}

func submitAudioFile(ctx context.Context, client *apiClient, path string, kws []string) (*transcribeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading audio file: %w", err)
	}

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = "wav"
	}

	return submitTranscription(ctx, client, map[string]any{
		"audio":    base64.StdEncoding.EncodeToString(data),
		"format":   format,
		"keywords": kws,
	})
}

func submitTranscription(ctx context.Context, client *apiClient, req map[string]any) (*transcribeResult, error) {
	resp, err := client.post(ctx, "/api/transcribe", req)
	if err != nil {
		return nil, err
	}

	var result transcribeResult
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func printTranscription(source string, result *transcribeResult) {
	if result.Success {
		printSuccess("%s: logged conversation %d", source, result.ID)
	} else {
		printWarning("%s: transcription stored with errors", source)
	}
	fmt.Printf("  %s\n", result.Text)
	if len(result.Keywords) > 0 {
		words := make([]string, len(result.Keywords))
		for i, k := range result.Keywords {
			words[i] = k.Word
		}
		fmt.Printf("  Keywords: %s\n", strings.Join(words, ", "))
	}
}

func init() {
	transcribeCmd.Flags().String("text", "", "log text directly instead of transcribing audio")
	transcribeCmd.Flags().String("keywords", "", "comma-separated keywords (skips automatic extraction)")
	transcribeCmd.Flags().Int("jobs", 2, "number of files to upload concurrently")
}

// --- keywords ---

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "List all recognized keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/keywords")
		if err != nil {
			return err
		}

		var payload struct {
			Keywords []string `json:"keywords"`
		}
		if err := decodeJSON(resp, &payload); err != nil {
			return err
		}

		if len(payload.Keywords) == 0 {
			fmt.Println("No keywords recognized yet.")
			return nil
		}

		for _, kw := range payload.Keywords {
			fmt.Println(kw)
		}
		return nil
	},
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search conversations by keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/api/search?keyword=" + url.QueryEscape(args[0])
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var payload struct {
			Conversations []conversationEntry `json:"conversations"`
		}
		if err := decodeJSON(resp, &payload); err != nil {
			return err
		}

		if len(payload.Conversations) == 0 {
			fmt.Println("No conversations found.")
			return nil
		}

		printConversations(payload.Conversations)
		return nil
	},
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid conversation id %q", args[0])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/api/conversations/%d", id))
		if err != nil {
			return err
		}

		var conv conversationEntry
		if err := decodeJSON(resp, &conv); err != nil {
			return err
		}

		fmt.Printf("%s  %s\n", colorize(colorBold, fmt.Sprintf("#%d", conv.ID)), conv.Timestamp)
		fmt.Printf("  %s\n", conv.Text)
		return nil
	},
}

// --- logs ---

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List conversation logs, optionally filtered",
	Long: `List conversation logs, optionally filtered by date range and keyword.

Examples:
  voicelog logs
  voicelog logs --start 2026-08-01 --end 2026-08-27
  voicelog logs --keyword budget`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		keyword, _ := cmd.Flags().GetString("keyword")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		params := url.Values{}
		if start != "" {
			params.Set("start_date", start)
		}
		if end != "" {
			params.Set("end_date", end)
		}
		if keyword != "" {
			params.Set("keyword", keyword)
		}
		path := "/api/logs"
		if len(params) > 0 {
			path += "?" + params.Encode()
		}

		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var payload struct {
			Logs []conversationEntry `json:"logs"`
		}
		if err := decodeJSON(resp, &payload); err != nil {
			return err
		}

		if len(payload.Logs) == 0 {
			fmt.Println("No conversations found.")
			return nil
		}

		printConversations(payload.Logs)
		return nil
	},
}

func printConversations(entries []conversationEntry) {
	for _, e := range entries {
		fmt.Printf("\n%s  %s\n", colorize(colorBold, fmt.Sprintf("#%d", e.ID)), e.Timestamp)
		text := e.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Printf("  %s\n", text)
		if len(e.Keywords) > 0 {
			fmt.Printf("  %s %s\n", colorize(colorCyan, "Keywords:"), strings.Join(e.Keywords, ", "))
		}
	}
}

func init() {
	logsCmd.Flags().String("start", "", "start date (YYYY-MM-DD, inclusive)")
	logsCmd.Flags().String("end", "", "end date (YYYY-MM-DD, inclusive)")
	logsCmd.Flags().String("keyword", "", "only conversations with this exact keyword")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
