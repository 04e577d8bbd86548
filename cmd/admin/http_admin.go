package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var baseURL string

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Print the running server's observer bootstrap document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return fetch(cmd, "/v1/observer/bootstrap")
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print the running server's metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return fetch(cmd, "/metrics")
	},
}

func init() {
	for _, c := range []*cobra.Command{bootstrapCmd, metricsCmd} {
		c.Flags().StringVar(&baseURL, "url", "http://127.0.0.1:8090", "server base url")
	}
}

func fetch(cmd *cobra.Command, path string) error {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(b), "\n"))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: %s", u, resp.Status)
	}
	return nil
}
