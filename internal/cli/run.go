// internal/cli/run.go
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nvelasco/karmacourt/internal/audio"
	"github.com/nvelasco/karmacourt/internal/auth"
	"github.com/nvelasco/karmacourt/internal/court"
	"github.com/nvelasco/karmacourt/internal/protocol"
	"github.com/nvelasco/karmacourt/internal/roster"
	"github.com/nvelasco/karmacourt/internal/session"
)

// run wires the whole client together: setup, roster, store, channel, then
// the interactive prompt until the user quits, the connection drops, or a
// signal arrives.
func run(ctx context.Context, cfg *Config) error {
	logger := logrus.New()
	if cfg.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := establishSession(ctx, cfg, logger)
	if err != nil {
		return err
	}

	self := protocol.Participant{
		ID:       sess.Identity.UserID,
		Username: sess.Identity.Username,
		Avatar:   sess.Identity.Avatar,
	}
	people := roster.New(cfg.server, logger).Participants(ctx, cfg.instance, self)
	logger.Infof("courtroom roster: %d participant(s)", len(people))

	player := &audio.LogPlayer{Log: logger}
	conductor := audio.NewConductor(player)
	defer conductor.Stop()

	// The store needs a sender before the channel exists; late-bind it.
	var (
		chMu sync.Mutex
		ch   *session.Channel
	)
	store := court.NewStore(court.Config{
		Log:  logger,
		Self: sess.Identity,
		Sender: court.SenderFunc(func(cmd protocol.Command) {
			chMu.Lock()
			c := ch
			chMu.Unlock()
			if c != nil {
				c.Send(cmd)
			}
		}),
		Audio: player,
	})
	defer store.Close()

	printer := newPrinter(os.Stdout)
	store.Subscribe(court.Subscription{
		OnSnapshot: func(s protocol.Snapshot) {
			conductor.Observe(s)
			printer.snapshot(s)
		},
		OnEffects: printer.effects,
	})

	closed := make(chan error, 1)
	opened, err := session.Open(ctx, session.Config{
		BaseURL:      cfg.server,
		UserID:       sess.Identity.UserID,
		InstanceID:   cfg.instance,
		ChannelID:    cfg.channel,
		SessionToken: sess.SessionToken,
		OnEvent:      store.HandleEvent,
		OnClose:      func(err error) { closed <- err },
	}, logger)
	if err != nil {
		return err
	}
	chMu.Lock()
	ch = opened
	chMu.Unlock()
	defer opened.Close()

	lines := readLines(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-closed:
			if err != nil {
				return fmt.Errorf("session ended: %w", err)
			}
			logger.Info("session closed")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := dispatch(line, store, people, printer); quit {
				return nil
			}
		}
	}
}

// establishSession resolves the local identity: the real OAuth token
// exchange when a code is given, a bare dev identity otherwise. Dev sessions
// carry no session token; the server must be running without handshake
// verification for those to connect.
func establishSession(ctx context.Context, cfg *Config, logger *logrus.Logger) (auth.Session, error) {
	if cfg.code != "" {
		return auth.New(cfg.server, logger).Exchange(ctx, cfg.code, cfg.redirectURI)
	}
	username := cfg.username
	if username == "" {
		username = "user-" + cfg.userID
	}
	logger.WithField("user_id", cfg.userID).Warn("auth: dev session, skipping token exchange")
	return auth.Session{Identity: auth.Identity{UserID: cfg.userID, Username: username}}, nil
}
