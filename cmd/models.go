package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/ai"
	cfgpkg "github.com/GauravPandit27/AI-Data-Analyst/internal/config"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/utils"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect or extend the model catalog used for context and cost estimates",
	Example: `  dataanalyst models show
  dataanalyst models show --json
  dataanalyst models sync --file ./models.json --save
  dataanalyst models fetch --url https://example.com/models.json --output ~/.dataanalyst/models.json`,
}

var modelsShowJSON bool

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := ai.Catalog()
		out := cmd.OutOrStdout()
		if modelsShowJSON {
			b, err := utils.PrettyJSON(cat)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROVIDER\tMODEL\tCONTEXT\t$/1K IN\t$/1K OUT")
		for _, m := range cat {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.5f\t%.5f\n", m.Provider, m.Name, m.ContextTokens, m.InputPerK, m.OutputPerK)
		}
		return tw.Flush()
	},
}

var (
	syncPath string
	syncSave bool
)

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge model entries from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		ai.MergeCatalog(m)
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %d models from %s\n", len(m), syncPath)
		if syncSave {
			return rememberCatalog(cmd, syncPath)
		}
		return nil
	},
}

var (
	fetchURL    string
	fetchOutput string
)

var modelsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a JSON model catalog, save it and merge it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if fetchURL == "" {
			return fmt.Errorf("--url is required")
		}
		client := &http.Client{Timeout: 20 * time.Second}
		resp, err := client.Get(fetchURL)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return fmt.Errorf("fetch: unexpected status %s: %s", resp.Status, string(b))
		}
		var m map[string]ai.ModelInfo
		if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		ai.MergeCatalog(m)
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %d fetched models\n", len(m))
		if fetchOutput == "" {
			return nil
		}
		data, err := utils.PrettyJSON(m)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(fetchOutput, data); err != nil {
			return fmt.Errorf("write file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved catalog to %s\n", fetchOutput)
		return rememberCatalog(cmd, fetchOutput)
	},
}

// rememberCatalog records path as models_catalog so later runs merge it on startup.
func rememberCatalog(cmd *cobra.Command, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	c, err := requireConfig()
	if err != nil {
		return err
	}
	c.ModelsCatalog = abs
	if err := cfgpkg.Save(c, cfgFile); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set models_catalog to %s\n", abs)
	return nil
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsCmd.AddCommand(modelsFetchCmd)

	modelsShowCmd.Flags().BoolVar(&modelsShowJSON, "json", false, "print the catalog as JSON")
	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
	modelsSyncCmd.Flags().BoolVar(&syncSave, "save", false, "record the file as models_catalog in the config")
	modelsFetchCmd.Flags().StringVar(&fetchURL, "url", "", "URL of a JSON catalog file")
	modelsFetchCmd.Flags().StringVar(&fetchOutput, "output", "", "save the fetched JSON here and record it as models_catalog")
}
