package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gitgauge/internal/container"
	"gitgauge/internal/domain"
)

var (
	analyzeRef   string
	analyzeForce bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <owner>/<repo>",
	Short: "Get an AI analysis of a repository",
	Long: `Request an AI analysis of a repository from the gitgauge backend.

Results are cached locally per (owner, repo, ref). A cached analysis is
returned without a network request unless --force is given; when a fresh
request fails and a cached result exists, the cached one is shown instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeRef, "ref", "main", "git ref to analyze")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "bypass the cache and request a fresh analysis")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	parts := strings.SplitN(args[0], "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("repository must be given as <owner>/<repo>, got %q", args[0])
	}

	c, err := buildContainer()
	if err != nil {
		return err
	}

	gateway, err := container.ResolveGateway(c)
	if err != nil {
		return err
	}

	result, err := gateway.AnalyzeRepository(cmd.Context(), parts[0], parts[1], analyzeRef, analyzeForce)
	if err != nil {
		if domain.IsNoCredential(err) {
			Error("Not logged in. Run 'gitgauge login' first.")
			return nil
		}
		return err
	}

	return RenderAnalysis(result, viper.GetString("output"))
}
