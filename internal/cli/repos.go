package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gitgauge/internal/container"
	"gitgauge/internal/domain"
)

var reposCached bool

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List your repositories",
	Long: `List the authenticated user's repositories.

The listing is fetched from the backend and mirrored locally. When the
backend is unreachable the stored listing is shown instead. With --cached
only the local mirror is read and no network request is made.`,
	RunE: runRepos,
}

func init() {
	reposCmd.Flags().BoolVar(&reposCached, "cached", false, "read the local mirror only")
	rootCmd.AddCommand(reposCmd)
}

func runRepos(cmd *cobra.Command, _ []string) error {
	c, err := buildContainer()
	if err != nil {
		return err
	}

	gateway, err := container.ResolveGateway(c)
	if err != nil {
		return err
	}

	var repos []domain.Repository
	if reposCached {
		repos, err = gateway.CachedRepositories(cmd.Context())
	} else {
		repos, err = gateway.ListRepositories(cmd.Context())
	}
	if err != nil {
		if domain.IsNoCredential(err) {
			Error("Not logged in. Run 'gitgauge login' first.")
			return nil
		}
		return err
	}

	if len(repos) == 0 {
		Info("No repositories found")
		return nil
	}
	return RenderRepositories(repos, viper.GetString("output"))
}
