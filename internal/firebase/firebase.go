package firebase

import (
	"context"
	"fmt"

	"storefront/internal/config"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Clients holds the Firebase app and the service clients created from it.
// Auth is nil when the auth client could not be initialised.
type Clients struct {
	App       *fb.App
	Firestore *firestore.Client
	Auth      *auth.Client
}

// New initialises the Firebase app for cfg.ProjectID. An empty credentials file
// falls back to Application Default Credentials; FIRESTORE_EMULATOR_HOST is
// honoured by the Firestore client.
func New(ctx context.Context, cfg config.FirebaseConfig, logger *zap.Logger) (*Clients, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app (project=%s): %w", cfg.ProjectID, err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client (project=%s): %w", cfg.ProjectID, err)
	}
	logger.Info("Firestore connected", zap.String("project", cfg.ProjectID))

	clients := &Clients{App: app, Firestore: fs}

	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.Warn("Firebase Auth init failed", zap.Error(err))
	} else {
		clients.Auth = authClient
	}

	return clients, nil
}

// Ping lists the root collections as a connectivity check.
func (c *Clients) Ping(ctx context.Context) error {
	if c == nil || c.Firestore == nil {
		return fmt.Errorf("firestore client is nil")
	}
	if _, err := c.Firestore.Collections(ctx).GetAll(); err != nil {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

func (c *Clients) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}
