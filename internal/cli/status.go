package cli

import (
	"github.com/spf13/cobra"

	"gitgauge/internal/container"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	c, err := buildContainer()
	if err != nil {
		return err
	}

	gateway, err := container.ResolveGateway(c)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if !gateway.IsLoggedIn(ctx) {
		Info("Not logged in")
		return nil
	}

	user, err := gateway.StoredUserProfile(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		Warning("A credential is stored but no profile; run 'gitgauge login' again")
		return nil
	}

	Success("Logged in as %s", user.DisplayName())
	if user.Bio != nil && *user.Bio != "" {
		Info("Bio: %s", *user.Bio)
	}
	if user.PublicRepos > 0 {
		Info("Public repositories: %d", user.PublicRepos)
	}

	repos, err := gateway.CachedRepositories(ctx)
	if err == nil {
		Info("Repositories mirrored locally: %d", len(repos))
	}
	return nil
}
