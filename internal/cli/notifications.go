package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gitgauge/internal/container"
	"gitgauge/internal/domain"
	"gitgauge/internal/repository"
)

var notificationsUnread bool

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show analysis notifications",
	RunE:  runNotifications,
}

var notificationsListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Stream notifications from the backend until interrupted",
	RunE:  runNotificationsListen,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsRead,
}

func init() {
	notificationsCmd.Flags().BoolVar(&notificationsUnread, "unread", false, "show unread notifications only")
	notificationsCmd.AddCommand(notificationsListenCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	rootCmd.AddCommand(notificationsCmd)
}

func resolveNotificationStore(c container.Container) (repository.NotificationRepository, error) {
	store, err := c.Resolve(container.NotificationRepositoryService)
	if err != nil {
		return nil, err
	}
	return store.(repository.NotificationRepository), nil
}

func runNotifications(cmd *cobra.Command, _ []string) error {
	c, err := buildContainer()
	if err != nil {
		return err
	}

	store, err := resolveNotificationStore(c)
	if err != nil {
		return err
	}

	var notifications []domain.Notification
	if notificationsUnread {
		notifications, err = store.Unread(cmd.Context())
	} else {
		notifications, err = store.List(cmd.Context())
	}
	if err != nil {
		return err
	}

	if len(notifications) == 0 {
		Info("No notifications")
		return nil
	}
	return RenderNotifications(notifications, viper.GetString("output"))
}

func runNotificationsListen(cmd *cobra.Command, _ []string) error {
	c, err := buildContainer()
	if err != nil {
		return err
	}

	listener, err := container.ResolveNotificationListener(c)
	if err != nil {
		return err
	}
	listener.SetHandler(func(n *domain.Notification) {
		Info("%s/%s: %s", n.RepoOwner, n.RepoName, n.Message)
	})

	if err := listener.Start(cmd.Context()); err != nil {
		return err
	}
	defer listener.Stop()

	Info("Listening for notifications, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return nil
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	c, err := buildContainer()
	if err != nil {
		return err
	}

	store, err := resolveNotificationStore(c)
	if err != nil {
		return err
	}

	if err := store.MarkRead(cmd.Context(), args[0]); err != nil {
		return err
	}
	Success("Marked %s as read", args[0])
	return nil
}
