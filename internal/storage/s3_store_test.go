//go:build integration

package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"postdesk/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	minioUser   = "postdesk"
	minioSecret = "postdesk-secret-key"
)

func setupTest(ctx context.Context) (testcontainers.Container, *S3Store, error) {
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:RELEASE.2025-04-22T22-12-26Z",
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioSecret,
		},
		WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000/tcp"),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		c.Terminate(ctx)
		return nil, nil, err
	}
	port, err := c.MappedPort(ctx, "9000")
	if err != nil {
		c.Terminate(ctx)
		return nil, nil, err
	}
	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())

	store, err := NewS3Store(config.S3Config{
		Endpoint:      endpoint,
		Region:        "us-east-1",
		AccessKey:     minioUser,
		SecretKey:     minioSecret,
		PublicBaseURL: endpoint,
	})
	if err != nil {
		c.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	for _, bucket := range []string{"blog-images", "avatars"} {
		if _, err := store.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
			c.Terminate(ctx)
			return nil, nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return c, store, nil
}

var testStore *S3Store

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, store, err := setupTest(ctx)
	if err != nil {
		panic(err)
	}

	testStore = store
	code := m.Run()
	container.Terminate(ctx)
	os.Exit(code)
}

func TestObjectStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	key := "1700000000000_abc123.png"
	content := "not really a png"

	path, err := testStore.StoreObject(ctx, "blog-images", key, strings.NewReader(content), "image/png")
	if err != nil {
		t.Fatalf("StoreObject failed: %v", err)
	}
	if path != key {
		t.Errorf("path: got %q, want %q", path, key)
	}

	if !testStore.Exists(ctx, "blog-images", path) {
		t.Fatal("object not found after store")
	}
	if testStore.Exists(ctx, "avatars", path) {
		t.Error("object leaked into the avatars bucket")
	}

	rc, err := testStore.Open(ctx, "blog-images", path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("could not read object: %v", err)
	}
	if string(got) != content {
		t.Errorf("expected %q, got %q", content, string(got))
	}

	url := testStore.PublicURLFor("blog-images", path)
	if !strings.HasSuffix(url, "/blog-images/"+key) {
		t.Errorf("unexpected public url %q", url)
	}
}

func TestStoreObjectUnknownBucket(t *testing.T) {
	_, err := testStore.StoreObject(context.Background(), "missing-bucket", "x.png", strings.NewReader("x"), "image/png")
	if err == nil {
		t.Fatal("expected an error for a missing bucket")
	}
}
