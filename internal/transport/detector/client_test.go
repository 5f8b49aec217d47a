package detector

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domdet "github.com/kailas-cloud/sentinel/internal/domain/detection"
)

func buildRequest(t *testing.T) domdet.Request {
	t.Helper()
	req, err := domdet.Build("cat.jpg", []byte("jpeg-bytes"), "pred-1", domdet.DefaultCostModel())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return req
}

func TestSend_Success(t *testing.T) {
	var gotHost, gotUA, gotKey, gotFile string
	var gotContent []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		gotUA = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("Idempotency-Key")

		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || params["boundary"] != domdet.Boundary {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		part, err := mr.NextPart()
		if err != nil {
			t.Errorf("NextPart: %v", err)
		} else {
			gotFile = part.FileName()
			gotContent, _ = io.ReadAll(part)
		}

		_, _ = w.Write([]byte(`{"id":"remote","secret":"x","web_entities":[],"full_matching_images":[],` +
			`"pages_with_matching_images":[],"visually_similar_images":[]}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{URL: srv.URL, Host: "detector.example:443", UserAgent: "sentinel-test", Timeout: 5 * time.Second})
	body, err := c.Send(context.Background(), buildRequest(t))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotHost != "detector.example:443" {
		t.Errorf("Host = %q", gotHost)
	}
	if gotUA != "sentinel-test" || gotKey != "pred-1" {
		t.Errorf("headers: ua=%q key=%q", gotUA, gotKey)
	}
	if gotFile != "cat.jpg" || string(gotContent) != "jpeg-bytes" {
		t.Errorf("part: file=%q content=%q", gotFile, gotContent)
	}
	want := `{"full_matching_images":[],"id":"remote","pages_with_matching_images":[],` +
		`"visually_similar_images":[],"web_entities":[]}`
	if string(body) != want {
		t.Errorf("body must be filtered, got %s", body)
	}
}

func TestSend_NonOKIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`slow down`))
	}))
	defer srv.Close()

	_, err := NewClient(&Config{URL: srv.URL}).Send(context.Background(), buildRequest(t))
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if rej.Code != http.StatusTooManyRequests || rej.Message != "slow down" {
		t.Errorf("unexpected rejection %+v", rej)
	}
}

func TestSend_NetworkErrorIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(&Config{URL: url}).Send(context.Background(), buildRequest(t))
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if rej.Code != 0 || rej.Message == "" {
		t.Errorf("unexpected rejection %+v", rej)
	}
	if !errors.Is(err, domain.ErrTransportRejected) {
		t.Error("expected ErrTransportRejected in chain")
	}
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(&Config{URL: srv.URL, Timeout: 50 * time.Millisecond}).
		Send(context.Background(), buildRequest(t))
	var rej *domain.RejectionError
	if !errors.As(err, &rej) || rej.Code != 0 {
		t.Fatalf("expected code 0 rejection, got %v", err)
	}
}
