// Package main is the CLI entry point.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tinkerloft/quotecraft/internal/model"
	"github.com/tinkerloft/quotecraft/internal/state"
)

// EditsFile represents the YAML edits file format.
type EditsFile struct {
	LineItems []LineItemSpec `yaml:"line_items"`
	Total     float64        `yaml:"total"`
}

// LineItemSpec is the YAML format for a single line item. It also carries
// JSON tags because the edit request forwards it to the server as-is.
type LineItemSpec struct {
	Description string  `yaml:"description" json:"description"`
	Quantity    float64 `yaml:"quantity" json:"quantity"`
	UnitPrice   float64 `yaml:"unit_price" json:"unit_price"`
	Total       float64 `yaml:"total" json:"total"`
}

var rootCmd = &cobra.Command{
	Use:   "quotecraft",
	Short: "QuoteCraft CLI",
	Long:  "CLI for generating price quotes and inspecting learned pricing knowledge",
}

var generateCmd = &cobra.Command{
	Use:   "generate [description]",
	Short: "Generate a quote",
	Long:  "Generate a draft quote from a freeform job description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

var editCmd = &cobra.Command{
	Use:   "edit [quote-id]",
	Short: "Record quote edits",
	Long:  "Submit the finalized line items for a quote; the edit feeds the learning pipeline",
	RunE:  runEdit,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List quotes",
	Long:  "List this contractor's quotes, most recently updated first",
	RunE:  runList,
}

var learnStatusCmd = &cobra.Command{
	Use:   "learn-status [quote-id]",
	Short: "Show learn progress",
	Long:  "Query how far the learn run for a quote has progressed",
	RunE:  runLearnStatus,
}

var learnRunsCmd = &cobra.Command{
	Use:   "learn-runs",
	Short: "List learn runs",
	Long:  "List learn workflow runs across all quotes, optionally filtered by execution status",
	RunE:  runLearnRuns,
}

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Inspect pricing knowledge",
}

var knowledgeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all pricing knowledge",
	RunE:  runKnowledgeShow,
}

var knowledgeCategoriesCmd = &cobra.Command{
	Use:   "categories [key]",
	Short: "Show pricing categories",
	Long:  "List all categories, or show one category in detail",
	RunE:  runKnowledgeCategories,
}

var knowledgeAddRuleCmd = &cobra.Command{
	Use:   "add-rule [rule]",
	Short: "Add a global pricing rule",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKnowledgeAddRule,
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "Server URL (default $QUOTECRAFT_SERVER_URL or http://localhost:8080)")
	rootCmd.PersistentFlags().String("contractor", "", "Contractor ID (default $QUOTECRAFT_CONTRACTOR)")

	editCmd.Flags().StringP("file", "f", "", "Path to edits YAML file (required)")
	editCmd.MarkFlagRequired("file")

	learnStatusCmd.Flags().Bool("wait", false, "Block until the learn run finishes")

	learnRunsCmd.Flags().String("status", "", "Filter by execution status (Running, Completed, Failed, ...)")
	learnRunsCmd.Flags().Int("limit", 0, "Maximum number of runs to return (0 = all)")

	knowledgeCmd.AddCommand(knowledgeShowCmd)
	knowledgeCmd.AddCommand(knowledgeCategoriesCmd)
	knowledgeCmd.AddCommand(knowledgeAddRuleCmd)

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(learnStatusCmd)
	rootCmd.AddCommand(learnRunsCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

// apiClient talks to the QuoteCraft server.
type apiClient struct {
	baseURL      string
	contractorID string
	http         *http.Client
}

func newAPIClient(cmd *cobra.Command) (*apiClient, error) {
	baseURL, _ := cmd.Flags().GetString("server")
	if baseURL == "" {
		baseURL = os.Getenv("QUOTECRAFT_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	contractorID, _ := cmd.Flags().GetString("contractor")
	if contractorID == "" {
		contractorID = os.Getenv("QUOTECRAFT_CONTRACTOR")
	}
	if contractorID == "" {
		return nil, fmt.Errorf("contractor ID is required (--contractor or $QUOTECRAFT_CONTRACTOR)")
	}

	return &apiClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		contractorID: contractorID,
		http:         http.DefaultClient,
	}, nil
}

func (c *apiClient) do(method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Contractor-ID", c.contractorID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	description := strings.Join(args, " ")
	var q model.Quote
	if err := c.do(http.MethodPost, "/api/v1/quotes", map[string]string{"description": description}, &q); err != nil {
		return fmt.Errorf("failed to generate quote: %w", err)
	}

	if err := state.SaveLastQuote(q.ID); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save last quote: %v\n", err)
	}

	printQuote(&q)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	quoteID, err := resolveQuoteID(args)
	if err != nil {
		return err
	}

	filePath, _ := cmd.Flags().GetString("file")
	edits, err := loadEditsFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to load edits file: %w", err)
	}

	body := map[string]any{
		"line_items": edits.LineItems,
		"total":      edits.Total,
	}

	var q model.Quote
	if err := c.do(http.MethodPost, "/api/v1/quotes/"+quoteID+"/edits", body, &q); err != nil {
		return fmt.Errorf("failed to record edits: %w", err)
	}

	fmt.Printf("Edits recorded for quote %s (status: %s)\n", q.ID, q.Status)
	fmt.Println("Learning from this correction in the background.")
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	var resp struct {
		Quotes []model.Quote `json:"quotes"`
	}
	if err := c.do(http.MethodGet, "/api/v1/quotes", nil, &resp); err != nil {
		return fmt.Errorf("failed to list quotes: %w", err)
	}

	if len(resp.Quotes) == 0 {
		fmt.Println("No quotes found")
		return nil
	}

	fmt.Printf("%-12s %-10s %-22s %10s  %s\n", "QUOTE ID", "STATUS", "CATEGORY", "TOTAL", "DESCRIPTION")
	fmt.Println(strings.Repeat("-", 90))
	for _, q := range resp.Quotes {
		desc := q.Description
		if len(desc) > 40 {
			desc = desc[:37] + "..."
		}
		fmt.Printf("%-12s %-10s %-22s %10.2f  %s\n", q.ID, q.Status, q.CategoryKey, q.FinalTotal(), desc)
	}
	return nil
}

func runLearnStatus(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	quoteID, err := resolveQuoteID(args)
	if err != nil {
		return err
	}

	path := "/api/v1/quotes/" + quoteID + "/learn-status"
	if wait, _ := cmd.Flags().GetBool("wait"); wait {
		fmt.Println("Waiting for learn run to finish...")
		path += "?wait=true"
	}

	var resp struct {
		QuoteID string `json:"quote_id"`
		Status  string `json:"status"`
	}
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return fmt.Errorf("failed to get learn status: %w", err)
	}

	fmt.Printf("Quote: %s\n", resp.QuoteID)
	fmt.Printf("Learn status: %s\n", resp.Status)
	return nil
}

func runLearnRuns(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	if status, _ := cmd.Flags().GetString("status"); status != "" {
		params.Set("status", status)
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/learn-runs"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp struct {
		Runs []struct {
			WorkflowID string `json:"workflow_id"`
			Status     string `json:"status"`
			StartTime  string `json:"start_time"`
		} `json:"runs"`
	}
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return fmt.Errorf("failed to list learn runs: %w", err)
	}

	if len(resp.Runs) == 0 {
		fmt.Println("No learn runs found")
		return nil
	}

	fmt.Printf("%-22s %-12s %s\n", "WORKFLOW ID", "STATUS", "STARTED")
	fmt.Println(strings.Repeat("-", 56))
	for _, run := range resp.Runs {
		fmt.Printf("%-22s %-12s %s\n", run.WorkflowID, run.Status, run.StartTime)
	}
	return nil
}

func runKnowledgeShow(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	var kn model.PricingKnowledge
	if err := c.do(http.MethodGet, "/api/v1/knowledge", nil, &kn); err != nil {
		return fmt.Errorf("failed to get knowledge: %w", err)
	}

	out, err := yaml.Marshal(&kn)
	if err != nil {
		return fmt.Errorf("failed to render knowledge: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runKnowledgeCategories(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		var cat model.Category
		if err := c.do(http.MethodGet, "/api/v1/knowledge/categories/"+args[0], nil, &cat); err != nil {
			return fmt.Errorf("failed to get category: %w", err)
		}
		out, err := yaml.Marshal(&cat)
		if err != nil {
			return fmt.Errorf("failed to render category: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}

	var kn model.PricingKnowledge
	if err := c.do(http.MethodGet, "/api/v1/knowledge", nil, &kn); err != nil {
		return fmt.Errorf("failed to get knowledge: %w", err)
	}

	if len(kn.Categories) == 0 {
		fmt.Println("No categories yet")
		return nil
	}

	fmt.Printf("%-24s %-24s %8s %10s %12s\n", "KEY", "NAME", "SAMPLES", "CONFIDENCE", "ADJUSTMENTS")
	fmt.Println(strings.Repeat("-", 82))
	for _, cat := range kn.Categories {
		fmt.Printf("%-24s %-24s %8d %10.2f %12d\n", cat.Key, cat.DisplayName, cat.Samples, cat.Confidence, len(cat.LearnedAdjustments))
	}
	return nil
}

func runKnowledgeAddRule(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	rule := strings.Join(args, " ")
	if err := c.do(http.MethodPost, "/api/v1/knowledge/rules", map[string]string{"rule": rule}, nil); err != nil {
		return fmt.Errorf("failed to add rule: %w", err)
	}

	fmt.Printf("Rule added: %s\n", rule)
	return nil
}

// resolveQuoteID uses the positional argument when given, falling back to the
// last generated quote.
func resolveQuoteID(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	quoteID, err := state.GetLastQuote()
	if err != nil {
		return "", fmt.Errorf("no quote ID given and %w", err)
	}
	return quoteID, nil
}

// loadEditsFile loads finalized line items from a YAML file.
func loadEditsFile(path string) (*EditsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var ef EditsFile
	if err := yaml.Unmarshal(data, &ef); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(ef.LineItems) == 0 {
		return nil, fmt.Errorf("edits file has no line_items")
	}

	// Derive totals the file leaves implicit.
	if ef.Total == 0 {
		for _, li := range ef.LineItems {
			ef.Total += li.Total
		}
	}

	return &ef, nil
}

func printQuote(q *model.Quote) {
	fmt.Printf("Quote %s (%s)\n", q.ID, q.CategoryKey)
	fmt.Printf("Status: %s\n\n", q.Status)
	for _, li := range q.LineItems {
		fmt.Printf("  %-40s %6.1f x %10.2f = %10.2f\n", li.Description, li.Quantity, li.UnitPrice, li.Total)
	}
	fmt.Printf("\n  %-40s %31.2f\n", "Total", q.Total)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
