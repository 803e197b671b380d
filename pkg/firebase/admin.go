// Package firebase bootstraps the Firestore and Cloud Storage clients
// this process's concrete Store Adapter and object store façade run on.
// Authentication is homegrown (internal/auth), so unlike the teacher
// this package does not carry a Firebase Auth client.
package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// Admin wraps the Google Cloud clients the process needs.
type Admin struct {
	App       *firebase.App
	Firestore *firestore.Client
	Storage   *gcs.Client
}

// Config holds initialization configuration.
type Config struct {
	ProjectID       string
	CredentialsPath string
	StorageBucket   string
	DatabaseID      string
}

// Initialize creates and initializes the Firestore and Storage clients.
func Initialize(ctx context.Context, cfg *Config) (*Admin, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("credentials_path is required")
	}

	conf := &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}

	opt := option.WithCredentialsFile(cfg.CredentialsPath)
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}

	storageClient, err := gcs.NewClient(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Storage client: %w", err)
	}

	return &Admin{
		App:       app,
		Firestore: firestoreClient,
		Storage:   storageClient,
	}, nil
}

// Close closes all clients.
func (a *Admin) Close() error {
	if a.Firestore != nil {
		if err := a.Firestore.Close(); err != nil {
			return fmt.Errorf("failed to close Firestore client: %w", err)
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close Storage client: %w", err)
		}
	}
	return nil
}

// HealthCheck verifies Firestore connectivity.
func (a *Admin) HealthCheck(ctx context.Context) error {
	_, err := a.Firestore.Collection("_health").Doc("_check").Get(ctx)
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("firestore health check failed: %w", err)
	}
	return nil
}

func isNotFoundError(err error) bool {
	return err != nil && (err.Error() == "not found" || err.Error() == "rpc error: code = NotFound")
}
