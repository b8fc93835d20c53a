package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wenpaihq/wenpai/internal/plan"
	"github.com/wenpaihq/wenpai/internal/security/secretbox"
)

type client struct {
	BaseURL   string
	Cookie    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return 0, nil, err
	}
	if c.Cookie != "" {
		req.Header.Set("Cookie", c.Cookie)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	_ = godotenv.Load()

	var (
		baseURL = envOr("WENPAI_URL", "http://localhost:8080")
		cookie  = envOr("WENPAI_COOKIE", "")
		out     = envOr("WENPAI_OUT", "text")
		timeout = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "wenpaictl",
		Short: "Operations CLI for the wenpai auth service",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "base URL of the service (env WENPAI_URL)")
	root.PersistentFlags().StringVar(&cookie, "cookie", cookie, "session cookie, e.g. wp_sid=... (env WENPAI_COOKIE)")
	root.PersistentFlags().StringVar(&out, "out", out, "output format: json|text")

	httpClient := &http.Client{Timeout: timeout}
	cl := &client{BaseURL: baseURL, Cookie: cookie, OutFormat: out, HTTP: httpClient}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check service liveness and readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/readyz")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("not ready: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}

	meCmd := &cobra.Command{
		Use:   "me",
		Short: "Show the session behind --cookie",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cl.Cookie == "" {
				return fmt.Errorf("--cookie is required (or env WENPAI_COOKIE)")
			}
			status, body, err := cl.do("GET", "/auth/me")
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	// plans operates on the local table, no server round trip.
	var plansFile string
	plansCmd := &cobra.Command{Use: "plans", Short: "Inspect the feature plan table"}
	plansCmd.PersistentFlags().StringVar(&plansFile, "file", "", "plan table YAML (default: compiled-in table)")

	plansListCmd := &cobra.Command{
		Use:   "list",
		Short: "List features and the tier each one requires",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadPlans(plansFile)
			if err != nil {
				return err
			}
			for _, f := range table.Features() {
				fmt.Printf("%-20s %-10s %s\n", f.ID, f.MinTier, f.Name)
			}
			return nil
		},
	}

	plansCheckCmd := &cobra.Command{
		Use:   "check <feature> <tier>",
		Short: "Check whether a tier may use a feature",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadPlans(plansFile)
			if err != nil {
				return err
			}
			d := table.Check(args[0], plan.ParseTier(args[1]))
			if d.Allowed {
				fmt.Println("allowed")
				return nil
			}
			fmt.Printf("denied: requires %s (%s)\n", d.RequiredTier, d.Message)
			os.Exit(1)
			return nil
		},
	}

	plansCmd.AddCommand(plansListCmd)
	plansCmd.AddCommand(plansCheckCmd)

	// secret mirrors the config loader's secretbox format so operators can
	// prepare encrypted values for config.yaml.
	secretCmd := &cobra.Command{Use: "secret", Short: "Encrypt or decrypt config secrets"}

	secretEncCmd := &cobra.Command{
		Use:   "encrypt <plaintext>",
		Short: "Encrypt a value with WENPAI_MASTER_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := secretbox.Encrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}

	secretDecCmd := &cobra.Command{
		Use:   "decrypt <ciphertext>",
		Short: "Decrypt a value with WENPAI_MASTER_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := secretbox.Decrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}

	secretCmd.AddCommand(secretEncCmd)
	secretCmd.AddCommand(secretDecCmd)

	root.AddCommand(healthCmd)
	root.AddCommand(meCmd)
	root.AddCommand(plansCmd)
	root.AddCommand(secretCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadPlans(file string) (*plan.Table, error) {
	if file != "" {
		return plan.LoadFile(file)
	}
	return plan.Default(), nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
