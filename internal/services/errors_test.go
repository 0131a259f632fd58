package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(ErrServer, "blogger", "publish", "request failed", base)
	if !errors.Is(err, ErrServer) {
		t.Fatalf("expected ErrServer marker in %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause in %v", err)
	}
	if !strings.Contains(err.Error(), "blogger: publish") {
		t.Fatalf("expected component detail in %v", err)
	}
}

func TestWrapNilMarkerDefaultsToUnknown(t *testing.T) {
	err := Wrap(nil, "captioner", "analyze", "", nil)
	if !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Wrap(ErrAuth, "blogger", "publish", "", nil), KindAuth},
		{Wrap(ErrPermission, "blogger", "publish", "", nil), KindPermission},
		{Wrap(ErrRateLimited, "blogger", "publish", "", nil), KindRateLimited},
		{Wrap(ErrServer, "blogger", "publish", "", nil), KindServer},
		{Wrap(ErrClient, "blogger", "publish", "", nil), KindClient},
		{Wrap(ErrNetwork, "blogger", "publish", "", nil), KindNetwork},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), KindNetwork},
		{errors.New("mystery"), KindUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := map[int]error{
		401: ErrAuth,
		403: ErrPermission,
		429: ErrRateLimited,
		500: ErrServer,
		503: ErrServer,
		404: ErrClient,
		200: ErrUnknown,
	}
	for status, want := range cases {
		if got := ClassifyStatus(status); !errors.Is(got, want) {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithCategory(ctx, "art")
	ctx = WithFilePath(ctx, "/tmp/a.jpg")
	ctx = WithRequestID(ctx, "req-1")

	if v, ok := CategoryFromContext(ctx); !ok || v != "art" {
		t.Fatalf("category = %q, %v", v, ok)
	}
	if v, ok := FilePathFromContext(ctx); !ok || v != "/tmp/a.jpg" {
		t.Fatalf("file path = %q, %v", v, ok)
	}
	if v, ok := RequestIDFromContext(ctx); !ok || v != "req-1" {
		t.Fatalf("request id = %q, %v", v, ok)
	}
	if _, ok := CategoryFromContext(context.Background()); ok {
		t.Fatal("empty context should not carry a category")
	}
}
