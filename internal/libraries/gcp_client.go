package libraries

import (
	"context"
	"encoding/base64"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewStorageClient builds a Cloud Storage client. encoded is a base64
// service-account JSON; when empty, Application Default Credentials apply.
func NewStorageClient(ctx context.Context, encoded string) (*storage.Client, error) {
	var opts []option.ClientOption
	if encoded != "" {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode service account json: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return client, nil
}
