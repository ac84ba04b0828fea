package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ROUTETREE_TEST_NAME", "hub")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "name: ${ROUTETREE_TEST_NAME}\nport: 9000\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "hub" || s.Port != 9000 {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_RunsValidator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "name: x\nport: 0\n")

	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "name: x\nprot: 9000\n")

	s := sample{Port: 1}
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "prot") {
		t.Fatalf("err = %v, want unknown field error", err)
	}
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "")

	s := sample{Name: "default", Port: 8080}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "default" || s.Port != 8080 {
		t.Errorf("loaded = %+v, want defaults", s)
	}
}

func TestLoadOptional_MissingFileUsesDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	loaded, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if loaded {
		t.Error("loaded = true for a missing file")
	}
	if s.Port != 8080 {
		t.Errorf("port = %d, want 8080", s.Port)
	}
}

func TestLoadOptional_MissingFileStillValidates(t *testing.T) {
	var s sample
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s); err == nil {
		t.Fatal("expected validation error for zero defaults")
	}
}

func TestLoadOptional_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "port: 9000\n")

	s := sample{Port: 8080}
	loaded, err := LoadOptional(path, &s)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if !loaded || s.Port != 9000 {
		t.Errorf("loaded = %v, port = %d", loaded, s.Port)
	}
}

func TestWatch_CallsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "port: 1\n")
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, logger, func() { calls.Add(1) }) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "port: 2\n")

	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("onChange was not called")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop after cancel")
	}
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "port: 1\n")
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() { _ = Watch(ctx, path, logger, func() { calls.Add(1) }) }()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "other.yaml"), "x: 1\n")
	time.Sleep(500 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("onChange called %d times for unrelated file", n)
	}
}
