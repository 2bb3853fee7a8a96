package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/lifeline/internal/crisis"
	"github.com/xiaot623/lifeline/internal/domain"
)

const (
	defaultServer  = "http://localhost:8080"
	adminKeyHeader = "X-Admin-Key"
)

type cliOptions struct {
	server   string
	adminKey string
	timeout  time.Duration
	out      io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &cliOptions{out: out}

	rootCmd := &cobra.Command{
		Use:          "lifeline",
		Short:        "Client for the lifeline crisis notification service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", envOr("LIFELINE_SERVER", defaultServer), "service base URL")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [messages.json]",
		Short: "Score a transcript locally without contacting the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args[0])
		},
	}

	resourcesCmd := &cobra.Command{
		Use:   "resources",
		Short: "List crisis hotlines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResources(opts)
		},
	}

	testAlertCmd := &cobra.Command{
		Use:   "test-alert [phone]",
		Short: "Send a test SMS through the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestAlert(opts, args[0])
		},
	}
	testAlertCmd.Flags().StringVar(&opts.adminKey, "admin-key", os.Getenv("ADMIN_API_KEY"), "operator key")

	var reportID string
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream call status updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, reportID)
		},
	}
	watchCmd.Flags().StringVar(&reportID, "report", "", "only show calls of this report")

	rootCmd.AddCommand(analyzeCmd, resourcesCmd, testAlertCmd, watchCmd)
	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// runAnalyze accepts either a bare message array or an analyze request body.
func runAnalyze(opts *cliOptions, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	var messages []domain.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		var req domain.AnalyzeRequest
		if err2 := json.Unmarshal(data, &req); err2 != nil {
			return fmt.Errorf("parse transcript: %w", err)
		}
		messages = req.Messages
	}

	analysis := crisis.NewDefaultAnalyzer().Analyze(messages)
	fmt.Fprintf(opts.out, "Score:        %d\n", analysis.Score)
	fmt.Fprintf(opts.out, "Level:        %s\n", analysis.Level)
	fmt.Fprintf(opts.out, "Intervention: %v\n", analysis.RequiresIntervention)
	if len(analysis.MatchedKeywords) > 0 {
		fmt.Fprintf(opts.out, "Matched:      %s\n", strings.Join(analysis.MatchedKeywords, ", "))
	}
	return nil
}

func runResources(opts *cliOptions) error {
	var resp domain.ResourcesResponse
	if err := doJSON(opts, http.MethodGet, "/api/emergency/resources", nil, nil, &resp); err != nil {
		return err
	}

	r := resp.Resources
	fmt.Fprintf(opts.out, "US suicide line:   %s\n", r.US.Suicide)
	fmt.Fprintf(opts.out, "US crisis line:    %s\n", r.US.Crisis)
	if r.US.Text != "" {
		fmt.Fprintf(opts.out, "US text line:      %s\n", r.US.Text)
	}
	fmt.Fprintf(opts.out, "International:     %s / %s\n", r.International.Suicide, r.International.Crisis)
	fmt.Fprintln(opts.out, resp.Message)
	return nil
}

func runTestAlert(opts *cliOptions, phone string) error {
	headers := map[string]string{adminKeyHeader: opts.adminKey}
	var resp domain.TestAlertResponse
	req := domain.TestAlertRequest{PhoneNumber: phone}
	if err := doJSON(opts, http.MethodPost, "/api/emergency/test", req, headers, &resp); err != nil {
		return err
	}
	fmt.Fprintf(opts.out, "%s (sid: %s, status: %s)\n", resp.Message, resp.ProviderReferenceID, resp.ProviderStatus)
	return nil
}

func doJSON(opts *cliOptions, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(opts.server, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: opts.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp domain.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
