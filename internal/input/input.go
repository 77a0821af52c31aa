// Package input loads the XML source document, either from the local
// filesystem or from a Cloud Storage object addressed as gs://bucket/path.
package input

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
)

const gcsScheme = "gs://"

// Read returns the full contents of the document at path.
func Read(ctx context.Context, path string) ([]byte, error) {
	if strings.HasPrefix(path, gcsScheme) {
		return readGCS(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	return data, nil
}

// SplitGCSURI splits gs://bucket/object/path into its bucket and object
// parts.
func SplitGCSURI(uri string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(uri, gcsScheme)
	bucket, object, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid GCS URI %q, want gs://bucket/object", uri)
	}
	return bucket, object, nil
}

func readGCS(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := SplitGCSURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}
