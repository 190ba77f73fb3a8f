package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/hearth/internal/client"
	"github.com/BioHazard786/hearth/internal/dns"
	"github.com/BioHazard786/hearth/internal/signaling"
	"github.com/BioHazard786/hearth/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live relay statistics",
	Long: `Fetch connection, community and call counts from a relay's /stats
endpoint.

Examples:
  hearth stats --server wss://relay.example.com/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		spinner := ui.NewConnectionSpinner("Fetching relay stats...")
		spinner.Start()
		stats, err := fetchStats(cmd, cfg.StatsURL())
		spinner.Stop()
		if err != nil {
			return client.NewError("stats", err)
		}

		ui.RenderStats(stats)
		return nil
	},
}

func fetchStats(cmd *cobra.Command, url string) (signaling.Stats, error) {
	var stats signaling.Stats

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return stats, err
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: &http.Transport{DialContext: dns.DialContext, Proxy: http.ProxyFromEnvironment},
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return stats, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("%s returned %s", url, resp.Status)
	}
	err = json.NewDecoder(resp.Body).Decode(&stats)
	return stats, err
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
