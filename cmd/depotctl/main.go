// Package main はCLIツールのエントリポイント。
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
)

const version = "1.0.0"

// CertificateIVHeader は証明書IVトークンを渡すリクエストヘッダ名。
const certificateIVHeader = "X-Certificate-IV"

var (
	apiURL        string
	certificateIV string
	output        string
	timeout       time.Duration
)

// HTTPクライアント
var httpClient *http.Client

func main() {
	rootCmd := &cobra.Command{
		Use:   "depotctl",
		Short: "Private Keys Depot CLI",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if apiURL == "" {
				apiURL = os.Getenv("DEPOT_API_URL")
			}
			if certificateIV == "" {
				certificateIV = os.Getenv("DEPOT_CERTIFICATE_IV")
			}
			httpClient = &http.Client{Timeout: timeout}
		},
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API endpoint URL (or set DEPOT_API_URL)")
	rootCmd.PersistentFlags().StringVar(&certificateIV, "certificate-iv", "", "Certificate IV token (or set DEPOT_CERTIFICATE_IV)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	// サブコマンド登録
	rootCmd.AddCommand(certCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(dropCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(algorithmsCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("depotctl version %s\n", version)
		},
	}
}

// requireAPI はAPI呼び出しに必要な共通フラグを検証する。
func requireAPI(needsIV bool) error {
	if apiURL == "" {
		return fmt.Errorf("--api-url is required (or set DEPOT_API_URL)")
	}
	if needsIV && certificateIV == "" {
		return fmt.Errorf("--certificate-iv is required (or set DEPOT_CERTIFICATE_IV)")
	}
	return nil
}

// doRequest は証明書IVヘッダ付きでAPIを呼び出し、レスポンスボディを返す。
func doRequest(method, url string, reqBody interface{}, wantStatus int) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(certificateIVHeader, certificateIV)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}
	return body, nil
}

// certCmd は証明書情報の取得コマンド。
func certCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cert",
		Short: "Get certificate details for the registered account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPI(true); err != nil {
				return err
			}

			body, err := doRequest(http.MethodGet, apiURL+"/v1/certificate", nil, http.StatusOK)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Println(string(body))
				return nil
			}
			var result map[string]interface{}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Printf("Registration ID:  %v\n", result["registration_id"])
			fmt.Printf("Owner:            %v\n", result["owner"])
			fmt.Printf("Email:            %v\n", result["email"])
			if addr, ok := result["licensee_address"]; ok {
				fmt.Printf("Licensee Address: %v\n", addr)
			}
			fmt.Printf("Licensed Date:    %v\n", result["licensed_date"])
			fmt.Printf("Status:           %v\n", result["status"])
			return nil
		},
	}
}

// listCmd は鍵一覧の取得コマンド。
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all keys in the depot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPI(true); err != nil {
				return err
			}

			body, err := doRequest(http.MethodGet, apiURL+"/v1/keys", nil, http.StatusOK)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Println(string(body))
				return nil
			}
			var result struct {
				Keys []struct {
					KeyName         string `json:"key_name"`
					CryptoAlgorithm string `json:"crypto_algorithm"`
					UpdatedAt       string `json:"updated_at"`
				} `json:"keys"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}

			fmt.Printf("%-32s %-36s %s\n", "KEY_NAME", "ALGORITHM", "UPDATED_AT")
			for _, k := range result.Keys {
				fmt.Printf("%-32s %-36s %s\n", k.KeyName, k.CryptoAlgorithm, k.UpdatedAt)
			}
			return nil
		},
	}
}

// getCmd は鍵の取得コマンド。
func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key-name>",
		Short: "Get a key from the depot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPI(true); err != nil {
				return err
			}

			body, err := doRequest(http.MethodGet, apiURL+"/v1/keys/"+args[0], nil, http.StatusOK)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Println(string(body))
				return nil
			}
			var result map[string]interface{}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Println(result["key"])
			return nil
		},
	}
	return cmd
}

// keyFlags はadd/updateで共通の鍵入力フラグ。
type keyFlags struct {
	value       string
	description string
	password    string
	algorithm   string
}

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.value, "value", "", "Key value to protect (required)")
	cmd.Flags().StringVar(&f.description, "description", "", "Key description (optional)")
	cmd.Flags().StringVar(&f.password, "password", "", "Crypto password (required)")
	cmd.Flags().StringVar(&f.algorithm, "algorithm", "", "Crypto algorithm name (required, see 'depotctl algorithms')")
	cmd.MarkFlagRequired("value")
	cmd.MarkFlagRequired("password")
	cmd.MarkFlagRequired("algorithm")
}

// addCmd は鍵の追加コマンド。
func addCmd() *cobra.Command {
	var flags keyFlags
	cmd := &cobra.Command{
		Use:   "add <key-name>",
		Short: "Add a new key to the depot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPI(true); err != nil {
				return err
			}

			reqBody := map[string]string{
				"key_name":         args[0],
				"key":              flags.value,
				"description":      flags.description,
				"password":         flags.password,
				"crypto_algorithm": flags.algorithm,
			}
			body, err := doRequest(http.MethodPost, apiURL+"/v1/keys", reqBody, http.StatusCreated)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Println(string(body))
			} else {
				fmt.Printf("Added key %q\n", args[0])
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// updateCmd は鍵の更新コマンド。
func updateCmd() *cobra.Command {
	var flags keyFlags
	cmd := &cobra.Command{
		Use:   "update <key-name>",
		Short: "Update an existing key in the depot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPI(true); err != nil {
				return err
			}

			reqBody := map[string]string{
				"key":              flags.value,
				"description":      flags.description,
				"password":         flags.password,
				"crypto_algorithm": flags.algorithm,
			}
			body, err := doRequest(http.MethodPut, apiURL+"/v1/keys/"+args[0], reqBody, http.StatusOK)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Println(string(body))
			} else {
				fmt.Printf("Updated key %q\n", args[0])
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// dropCmd は鍵の削除コマンド。
func dropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <key-name>",
		Short: "Delete a key from the depot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPI(true); err != nil {
				return err
			}

			body, err := doRequest(http.MethodDelete, apiURL+"/v1/keys/"+args[0], nil, http.StatusOK)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Println(string(body))
			} else {
				fmt.Printf("Dropped key %q\n", args[0])
			}
			return nil
		},
	}
}

// checkCmd は鍵の照合コマンド。
func checkCmd() *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "check <key-name>",
		Short: "Check a candidate value against a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPI(true); err != nil {
				return err
			}

			reqBody := map[string]string{"key": value}
			body, err := doRequest(http.MethodPost, apiURL+"/v1/keys/"+args[0]+"/check", reqBody, http.StatusOK)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Println(string(body))
				return nil
			}
			var result struct {
				Match bool `json:"match"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			if result.Match {
				fmt.Println("Yes, key match")
			} else {
				fmt.Println("No, doesn't match")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "Candidate value to compare (required)")
	cmd.MarkFlagRequired("value")
	return cmd
}

// algorithmsCmd は選択可能なアルゴリズム一覧の取得コマンド。
func algorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List available crypto algorithms",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPI(false); err != nil {
				return err
			}

			body, err := doRequest(http.MethodGet, apiURL+"/v1/algorithms", nil, http.StatusOK)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Println(string(body))
				return nil
			}
			var result struct {
				Algorithms []string `json:"algorithms"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Println(strings.Join(result.Algorithms, "\n"))
			return nil
		},
	}
}

func handleErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("Error: %s", errResp.Message)
	}
	return fmt.Errorf("Error: server returned status %d", statusCode)
}
