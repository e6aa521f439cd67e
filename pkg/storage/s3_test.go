package storage_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/voxterm/voxterm/pkg/storage"
)

// fakeS3 records uploads in memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[*in.Key] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	_, ok := f.objects[*in.Key]
	f.mu.Unlock()
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3WriteAndExists(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := storage.NewS3(client, "bucket", "voxterm")

	ok, err := store.Exists(ctx, "out.csv")
	if err != nil || ok {
		t.Fatalf("Exists before write = %v, %v", ok, err)
	}

	w, err := store.Write(ctx, "out.csv")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write([]byte("id,text\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := string(client.objects["voxterm/out.csv"]); got != "id,text\n" {
		t.Errorf("uploaded body = %q", got)
	}
	ok, err = store.Exists(ctx, "out.csv")
	if err != nil || !ok {
		t.Fatalf("Exists after write = %v, %v", ok, err)
	}
}

func TestS3WriteErrorSurfacesOnClose(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	client.putErr = errors.New("access denied")
	store := storage.NewS3(client, "bucket", "")

	w, err := store.Write(ctx, "out.csv")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Write([]byte("data"))
	if err := w.Close(); err == nil {
		t.Fatal("Close must return the upload error")
	}
}

func TestS3KeyWithoutPrefix(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := storage.NewS3(client, "bucket", "")

	w, _ := store.Write(ctx, "plain.csv")
	w.Close()
	if _, ok := client.objects["plain.csv"]; !ok {
		t.Errorf("object keys = %v, want plain.csv", client.objects)
	}
}
