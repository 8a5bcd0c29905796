package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gitgauge/internal/container"
	"gitgauge/internal/domain"
	"gitgauge/internal/services"
)

var loginWeb bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with GitHub",
	Long: `Authenticate with GitHub through the gitgauge backend.

By default the device flow is used: a short code is shown to enter at the
verification URL. With --web, a browser authorization URL is printed and the
callback code is read from stdin.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().BoolVar(&loginWeb, "web", false, "use browser-based login instead of the device flow")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	c, err := buildContainer()
	if err != nil {
		return err
	}

	gateway, err := container.ResolveGateway(c)
	if err != nil {
		return err
	}
	flow, err := container.ResolveAuthFlow(c)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := flow.Begin(); err != nil {
		return err
	}

	var user *domain.User
	if loginWeb {
		user, err = webLogin(ctx, gateway, flow)
	} else {
		user, err = deviceLogin(ctx, gateway, flow)
	}
	if err != nil {
		_ = flow.Fail(err.Error())
		if domain.IsExpired(err) {
			Error("Login timed out: %v", err)
			return nil
		}
		return err
	}

	if err := flow.Complete(user); err != nil {
		return err
	}
	Success("Logged in as %s", user.DisplayName())
	return nil
}

func deviceLogin(ctx context.Context, gateway *services.Gateway, _ *services.AuthFlow) (*domain.User, error) {
	resp, err := gateway.InitiateDeviceFlow(ctx)
	if err != nil {
		return nil, err
	}

	Info("Open %s and enter code: %s", resp.VerificationURI, resp.UserCode)
	Info("Waiting for authorization...")

	return gateway.PollDeviceFlow(ctx, resp.DeviceCode, resp.Interval, resp.ExpiresIn)
}

func webLogin(ctx context.Context, gateway *services.Gateway, flow *services.AuthFlow) (*domain.User, error) {
	url, err := gateway.GetLoginURL(ctx)
	if err != nil {
		return nil, err
	}
	if err := flow.URLReady(url); err != nil {
		return nil, err
	}

	Info("Open the following URL in your browser to authorize:")
	fmt.Println(url)
	fmt.Print("Paste the callback code: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read code: %w", err)
	}
	code := strings.TrimSpace(line)

	return gateway.ExchangeCodeForToken(ctx, code, "")
}

func runLogout(cmd *cobra.Command, _ []string) error {
	c, err := buildContainer()
	if err != nil {
		return err
	}

	gateway, err := container.ResolveGateway(c)
	if err != nil {
		return err
	}

	if err := gateway.Logout(cmd.Context()); err != nil {
		return err
	}
	Success("Logged out")
	return nil
}
