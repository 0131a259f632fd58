package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"shutterpost/internal/config"
	"shutterpost/internal/services/blogger"
	"shutterpost/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("Watch directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for writable dir, got %+v", result)
	}

	missing := CheckDirectoryAccess("Watch directory", filepath.Join(dir, "nope"))
	if missing.Passed {
		t.Fatal("expected failure for missing dir")
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	notDir := CheckDirectoryAccess("Watch directory", file)
	if notDir.Passed {
		t.Fatal("expected failure for non-directory")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	result := CheckFreeSpace("Watch filesystem", dir, 1)
	if !result.Passed {
		t.Fatalf("expected pass with 1-byte minimum, got %+v", result)
	}

	huge := CheckFreeSpace("Watch filesystem", dir, ^uint64(0))
	if huge.Passed {
		t.Fatal("expected failure with absurd minimum")
	}
}

func TestCheckBlog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"status":200,"msg":"OK"}}`))
	}))
	defer server.Close()

	client := blogger.NewClient(config.Blog{Name: "testblog", APIKey: "key"}, blogger.WithBaseURL(server.URL))
	result := CheckBlog(context.Background(), client)
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
}

func TestCheckBlogAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := blogger.NewClient(config.Blog{Name: "testblog", APIKey: "key"}, blogger.WithBaseURL(server.URL))
	result := CheckBlog(context.Background(), client)
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
}

func TestCheckCaptioner(t *testing.T) {
	ok := CheckCaptioner(config.Captioning{Enabled: true, APIKey: "key", TimeoutSeconds: 30})
	if !ok.Passed {
		t.Fatalf("expected pass, got %+v", ok)
	}
	missing := CheckCaptioner(config.Captioning{Enabled: true})
	if missing.Passed {
		t.Fatal("expected failure without api key")
	}
}

func TestRunAllReportsDirectoryChecks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"status":200,"msg":"OK"}}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCategories("art"))
	cfg.Blog.BaseURL = server.URL

	results := RunAll(context.Background(), cfg)
	if len(results) < 5 {
		t.Fatalf("expected at least 5 checks, got %d", len(results))
	}
	if !AllPassed(results) {
		t.Fatalf("expected all checks to pass, got %+v", results)
	}
}
