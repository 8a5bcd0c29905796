package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gitgauge/internal/domain"
	"gitgauge/internal/repository"
)

// NotificationHandler is invoked for each notification after it is persisted.
type NotificationHandler func(n *domain.Notification)

// NotificationListener maintains a websocket connection to the backend's
// notification channel, persisting each message and invoking an optional
// handler. Dropped connections are retried a bounded number of times; the
// attempt counter resets after every successful connect.
type NotificationListener struct {
	wsURL      string
	store      repository.NotificationRepository
	handler    NotificationHandler
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
	sleep      SleepFunc

	dial func(ctx context.Context, url string) (wsConn, error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

// wsConn is the subset of a websocket connection the listener uses.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

// NewNotificationListener creates a listener for wsURL. handler may be nil.
func NewNotificationListener(
	wsURL string,
	store repository.NotificationRepository,
	handler NotificationHandler,
	maxRetries int,
	retryDelay time.Duration,
	logger *slog.Logger,
) *NotificationListener {
	return &NotificationListener{
		wsURL:      wsURL,
		store:      store,
		handler:    handler,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		sleep:      defaultSleep,
		dial: func(ctx context.Context, url string) (wsConn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
	}
}

// SetHandler replaces the notification handler. It must be called before
// Start.
func (l *NotificationListener) SetHandler(handler NotificationHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		l.handler = handler
	}
}

// Start begins listening in a background goroutine. Calling Start on a
// running listener is an error.
func (l *NotificationListener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return domain.NewValidationError("LISTENER_RUNNING", "Notification listener already running", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true
	l.done = make(chan struct{})

	go l.run(runCtx)
	return nil
}

// Stop tears down the connection and stops reconnecting. It blocks until the
// background goroutine exits. Stopping a stopped listener is a no-op.
func (l *NotificationListener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	cancel := l.cancel
	done := l.done
	l.mu.Unlock()

	cancel()
	<-done
}

func (l *NotificationListener) run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.running = false
		close(l.done)
		l.mu.Unlock()
	}()

	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := l.dial(ctx, l.wsURL)
		if err != nil {
			attempts++
			l.logger.Warn("notification channel dial failed",
				slog.Int("attempt", attempts),
				slog.String("error", err.Error()),
			)
			if attempts >= l.maxRetries {
				l.logger.Error("notification channel gave up reconnecting",
					slog.Int("attempts", attempts),
				)
				return
			}
			if err := l.sleep(ctx, l.retryDelay); err != nil {
				return
			}
			continue
		}

		l.logger.Info("notification channel connected")
		attempts = 0

		l.readLoop(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		l.logger.Warn("notification channel disconnected, reconnecting")
		if err := l.sleep(ctx, l.retryDelay); err != nil {
			return
		}
	}
}

func (l *NotificationListener) readLoop(ctx context.Context, conn wsConn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var payload domain.NotificationPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			l.logger.Warn("dropping malformed notification", slog.String("error", err.Error()))
			continue
		}

		n := payload.ToNotification(uuid.New().String())
		if err := l.store.Save(ctx, n); err != nil {
			l.logger.Warn("failed to persist notification",
				slog.String("id", n.ID),
				slog.String("error", err.Error()),
			)
		}
		if l.handler != nil {
			l.handler(n)
		}
	}
}
