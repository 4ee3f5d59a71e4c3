package app

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
)

func TestBuildVersionString(t *testing.T) {
	SetBuildInfo("v1.2.3", "abc123", "2026-02-16T12:00:00Z")
	got := BuildVersionString()
	want := "v1.2.3 (abc123) 2026-02-16T12:00:00Z"
	if got != want {
		t.Fatalf("BuildVersionString() = %q, want %q", got, want)
	}
}

func TestVersionCommandJSON(t *testing.T) {
	isolateConfig(t)
	SetBuildInfo("v1.2.3", "abc123", "2026-02-16T12:00:00Z")
	var stdout bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"version", "--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var env struct {
		Data versionInfo `json:"data"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data.Version != "v1.2.3" || env.Data.Commit != "abc123" || !strings.HasPrefix(env.Data.GoVersion, "go") {
		t.Fatalf("unexpected version payload: %+v", env.Data)
	}
}
