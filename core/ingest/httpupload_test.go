package ingest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPUploaderPut(t *testing.T) {
	var gotMethod, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u := NewHTTPUploader(10 * time.Second)
	file := testFile("song.mp3", "audio/mpeg")
	err := u.Upload(context.Background(), UploadCredential{UploadURL: srv.URL + "/bside/audio/song.mp3"}, file)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotContentType != "audio/mpeg" {
		t.Errorf("content type = %q", gotContentType)
	}
	if !strings.Contains(gotBody, "song.mp3") {
		t.Errorf("body = %q", gotBody)
	}
}

func TestHTTPUploaderRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access denied", http.StatusForbidden)
	}))
	defer srv.Close()

	u := NewHTTPUploader(10 * time.Second)
	err := u.Upload(context.Background(), UploadCredential{UploadURL: srv.URL}, testFile("a.mp3", "audio/mpeg"))
	if err == nil || !strings.Contains(err.Error(), "upload rejected with status 403") {
		t.Errorf("err = %v, want status 403 error", err)
	}
}

func TestHTTPUploaderOpenFailure(t *testing.T) {
	u := NewHTTPUploader(time.Second)
	file := FileRef{
		Name: "gone.mp3",
		Open: func() (io.ReadCloser, error) {
			return nil, io.ErrUnexpectedEOF
		},
	}
	if err := u.Upload(context.Background(), UploadCredential{UploadURL: "http://127.0.0.1:0"}, file); err == nil {
		t.Error("expected error when file cannot be opened")
	}
}
