package main

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
)

func TestRun_WritesKeyPair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	if err := run(dir, []string{"localhost"}); err != nil {
		t.Fatalf("run error: %v", err)
	}

	if _, err := tls.LoadX509KeyPair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")); err != nil {
		t.Fatalf("load key pair: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "server.key"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key mode = %o; want 600", perm)
	}
}

func TestRun_NoHosts(t *testing.T) {
	if err := run(t.TempDir(), nil); err == nil {
		t.Error("expected error without hosts")
	}
}
