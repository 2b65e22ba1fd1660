package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "payrun-cli",
		Short: "Payrun CLI tool",
		Long:  `A command line interface for interacting with the Payrun API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the Payrun API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	// Batch commands
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Finalization batch operations",
	}

	var voucherRef, actor, idempotencyKey string
	finalizeCmd := &cobra.Command{
		Use:   "finalize [payment-id...]",
		Short: "Finalize a batch of staged payments",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			finalizeBatch(args, voucherRef, actor, idempotencyKey)
		},
	}
	finalizeCmd.Flags().StringVar(&voucherRef, "voucher", "", "Voucher reference for the batch")
	finalizeCmd.Flags().StringVar(&actor, "actor", "cli", "Actor recorded on the audit trail")
	finalizeCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for safe retries")

	getBatchCmd := &cobra.Command{
		Use:   "get [batch-id]",
		Short: "Show a finalization batch",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/batches/" + args[0])
		},
	}

	var undoActor string
	undoCmd := &cobra.Command{
		Use:   "undo [batch-id]",
		Short: "Restore the pre-batch snapshot of a batch",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			undoBatch(args[0], undoActor)
		},
	}
	undoCmd.Flags().StringVar(&undoActor, "actor", "cli", "Actor recorded on the audit trail")

	batchCmd.AddCommand(finalizeCmd, getBatchCmd, undoCmd)
	rootCmd.AddCommand(batchCmd)

	// Account commands
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Budget account operations",
	}

	getAccountCmd := &cobra.Command{
		Use:   "get [account-id]",
		Short: "Show a budget account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/accounts/" + args[0])
		},
	}

	resolveCmd := &cobra.Command{
		Use:   "resolve [reference]",
		Short: "Resolve a payment account reference to an account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/accounts/resolve?ref=" + url.QueryEscape(args[0]))
		},
	}

	entriesCmd := &cobra.Command{
		Use:   "entries [account-id]",
		Short: "List ledger entries of an account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/accounts/" + args[0] + "/entries")
		},
	}

	accountCmd.AddCommand(getAccountCmd, resolveCmd, entriesCmd)
	rootCmd.AddCommand(accountCmd)

	// Ledger commands
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency()
		},
	}

	ledgerCmd.AddCommand(consistencyCmd)
	rootCmd.AddCommand(ledgerCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func finalizeBatch(paymentIDs []string, voucherRef, actor, idempotencyKey string) {
	payload := map[string]any{
		"payment_ids": paymentIDs,
		"voucher_ref": voucherRef,
		"actor":       actor,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/batches/finalize", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Printf("Finalization FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(respBody))
		os.Exit(1)
	}

	fmt.Printf("Finalization COMPLETED\n%s\n", prettyJSON(respBody))
}

func undoBatch(batchID, actor string) {
	payload := map[string]any{"actor": actor}
	body, _ := json.Marshal(payload)

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+"/api/v1/batches/"+batchID+"/undo", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Undo FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(respBody))
		os.Exit(1)
	}

	fmt.Printf("Undo COMPLETED\n%s\n", prettyJSON(respBody))
}

func getJSON(path string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	fmt.Println(prettyJSON(body))
}

func checkConsistency() {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + "/api/v1/ledger/consistency")
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Consistency check FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	if consistent, ok := result["consistent"].(bool); ok && !consistent {
		fmt.Printf("Consistency check FAILED\n%s\n", prettyJSON(body))
		os.Exit(1)
	}

	fmt.Printf("Consistency check PASSED\n%s\n", prettyJSON(body))
}

func prettyJSON(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return strings.TrimSpace(string(body))
	}

	return buf.String()
}
