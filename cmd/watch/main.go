// Package main runs a headless messaging session for one user and logs conversation and
// unread changes as they happen.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/client"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/config"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/middleware"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	natsclient "github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/nats"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/realtime"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/session"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
)

const refreshInterval = time.Minute

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if cfg.SessionUserID == "" {
		log.Error("SESSION_USER_ID is required")
		os.Exit(1)
	}

	token := cfg.SessionToken
	if token == "" {
		token, err = middleware.SignToken(cfg.JWTSecret, cfg.SessionUserID, "", 24*time.Hour)
		if err != nil {
			log.Error("failed to sign session token", zap.Error(err))
			os.Exit(1)
		}
	}

	api := client.New(client.Config{
		BaseURL:    cfg.StoreURL,
		ProfileURL: cfg.ProfileURL,
		Token:      token,
		Timeout:    cfg.RequestTimeout,
	})

	channel := realtime.NewChannel(natsclient.Dialer(natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log), log)

	sess := session.New(api, channel, log, session.Options{PresenceInterval: cfg.PresenceInterval})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sess.Login(ctx, cfg.SessionUserID); err != nil {
		log.Warn("initial refresh failed", zap.Error(err))
	}
	defer sess.Logout()

	unsubIndex := sess.Index().Subscribe(func(convs []model.Conversation) {
		for _, c := range convs {
			log.Info("conversation",
				zap.String("counterpart", c.CounterpartName),
				zap.String("last_message", c.LastMessage),
				zap.Int("unread", c.UnreadCount),
			)
		}
	})
	defer unsubIndex()

	unsubUnread := sess.Unread().Subscribe(func(n int) {
		log.Info("unread messages", zap.Int("count", n))
	})
	defer unsubUnread()

	log.Info("watching", zap.String("user_id", cfg.SessionUserID), zap.Int("conversations", len(sess.Conversations())))

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("stopping watch")
			return
		case <-ticker.C:
			if err := sess.Refresh(ctx); err != nil {
				log.Warn("refresh failed", zap.Error(err))
			}
		}
	}
}
