package bilibili

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const watchPageHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Test Video_哔哩哔哩_bilibili</title>
	<meta name="author" content="uploader">
	<script>window.__playinfo__={"code":0,"message":"success","data":{"dash":{"duration":213,"video":[{"id":80,"baseUrl":"https://cdn.example.com/v-80.m4s","bandwidth":2000000}],"audio":[{"id":30280,"baseUrl":"https://cdn.example.com/a-30280.m4s","bandwidth":192000}]}}}</script>
	<script>window.__INITIAL_STATE__={"unrelated":true}</script>
</head>
<body></body>
</html>`

func TestPageResolver_Resolve(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, watchPageHTML)
	}))
	defer server.Close()

	p := NewPageResolver(WithPageBaseURL(server.URL))

	info, err := p.Resolve(context.Background(), "BV1xz421B7ku")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}

	if gotPath != "/video/BV1xz421B7ku/" {
		t.Errorf("Resolve() fetched %q, want /video/BV1xz421B7ku/", gotPath)
	}
	if info.Title != "Test Video" {
		t.Errorf("Resolve() Title = %q, want suffix-stripped %q", info.Title, "Test Video")
	}
	if info.Owner != "uploader" {
		t.Errorf("Resolve() Owner = %q, want %q", info.Owner, "uploader")
	}
	if info.Duration != 213 {
		t.Errorf("Resolve() Duration = %d, want 213", info.Duration)
	}

	if got := info.Streams.Video[0].URL(); got != "https://cdn.example.com/v-80.m4s" {
		t.Errorf("Resolve() video URL = %q, want embedded CDN URL", got)
	}
	if got := info.Streams.Audio[0].URL(); got != "https://cdn.example.com/a-30280.m4s" {
		t.Errorf("Resolve() audio URL = %q, want embedded CDN URL", got)
	}
}

func TestPageResolver_Resolve_NoPlayinfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>x</title></head><body>no scripts</body></html>`)
	}))
	defer server.Close()

	p := NewPageResolver(WithPageBaseURL(server.URL))

	_, err := p.Resolve(context.Background(), "BV1xz421B7ku")
	if !errors.Is(err, ErrPlayinfoNotFound) {
		t.Errorf("Resolve() error = %v, want %v", err, ErrPlayinfoNotFound)
	}
}

func TestPageResolver_Resolve_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewPageResolver(WithPageBaseURL(server.URL))

	_, err := p.Resolve(context.Background(), "BV1xz421B7ku")
	if err == nil {
		t.Fatal("Resolve() expected error for 404 page, got nil")
	}
	if !contains(err.Error(), "unexpected status code 404") {
		t.Errorf("Resolve() error = %v, want status code in message", err)
	}
}
