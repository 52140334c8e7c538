package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreWritesImageToDisk(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewMediaService(dir, nil)
	if err != nil {
		t.Fatalf("NewMediaService failed: %v", err)
	}

	stored, err := svc.Store(context.Background(), UploadInput{
		Data:        []byte("fake png bytes"),
		ContentType: "image/png",
		Filename:    "Garden Photo.PNG",
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if !strings.HasPrefix(stored.URL, "/uploads/") {
		t.Errorf("URL = %q, want /uploads/ prefix", stored.URL)
	}
	if !strings.HasSuffix(stored.Filename, ".png") {
		t.Errorf("filename = %q, want lowercased .png extension", stored.Filename)
	}

	data, err := os.ReadFile(filepath.Join(dir, stored.Filename))
	if err != nil {
		t.Fatalf("stored file is not readable: %v", err)
	}
	if string(data) != "fake png bytes" {
		t.Error("stored file content does not match the upload")
	}
}

func TestStoreRejectsNonImage(t *testing.T) {
	svc, err := NewMediaService(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewMediaService failed: %v", err)
	}

	_, err = svc.Store(context.Background(), UploadInput{
		Data:        []byte("%PDF-1.4"),
		ContentType: "application/pdf",
		Filename:    "contract.pdf",
	})
	if !errors.Is(err, ErrUnsupportedMediaType) {
		t.Errorf("expected ErrUnsupportedMediaType, got %v", err)
	}
}

func TestStoreDefaultsToJPGExtension(t *testing.T) {
	svc, err := NewMediaService(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewMediaService failed: %v", err)
	}

	stored, err := svc.Store(context.Background(), UploadInput{
		Data:        []byte("raw bytes"),
		ContentType: "image/jpeg",
		Filename:    "camera-upload",
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !strings.HasSuffix(stored.Filename, ".jpg") {
		t.Errorf("filename = %q, want .jpg default extension", stored.Filename)
	}
}

func TestStoreGeneratesUniqueFilenames(t *testing.T) {
	svc, err := NewMediaService(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewMediaService failed: %v", err)
	}

	first, err := svc.Store(context.Background(), UploadInput{
		Data: []byte("a"), ContentType: "image/png", Filename: "same.png",
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	second, err := svc.Store(context.Background(), UploadInput{
		Data: []byte("b"), ContentType: "image/png", Filename: "same.png",
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if first.Filename == second.Filename {
		t.Error("two uploads with the same name must not collide")
	}
}
