package ingest

import (
	"bytes"
	"io"
	"testing"
)

func testFile(name, mime string) FileRef {
	data := []byte("fake audio bytes for " + name)
	return FileRef{
		Name:     name,
		Size:     int64(len(data)),
		MIMEType: mime,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestSupportedFile(t *testing.T) {
	tests := []struct {
		name string
		mime string
		want bool
	}{
		{"song.mp3", "audio/mpeg", true},
		{"song.mp3", "", true},
		{"song.MP3", "", true},
		{"track.flac", "audio/flac", true},
		{"track.wav", "audio/x-wav", true},
		{"voice.m4a", "audio/mp4", true},
		{"cover.jpg", "image/jpeg", false},
		{"notes.txt", "text/plain", false},
		{"noext", "", false},
		// MIME类型可靠时扩展名无关紧要
		{"mislabeled.bin", "audio/ogg", true},
	}

	for _, tt := range tests {
		if got := SupportedFile(tt.name, tt.mime); got != tt.want {
			t.Errorf("SupportedFile(%q, %q) = %v, want %v", tt.name, tt.mime, got, tt.want)
		}
	}
}

func TestValidateFilesMixed(t *testing.T) {
	files := []FileRef{
		testFile("a.mp3", "audio/mpeg"),
		testFile("readme.txt", "text/plain"),
		testFile("b.flac", "audio/flac"),
		testFile("cover.png", "image/png"),
	}

	result := ValidateFiles(files)

	if len(result.Accepted) != 2 {
		t.Fatalf("accepted = %d, want 2", len(result.Accepted))
	}
	if result.RejectedCount != 2 {
		t.Errorf("rejected = %d, want 2", result.RejectedCount)
	}

	for _, tr := range result.Accepted {
		if tr.Status != StatusPending {
			t.Errorf("track %s status = %s, want pending", tr.File.Name, tr.Status)
		}
		if tr.LocalID == "" {
			t.Errorf("track %s has empty local ID", tr.File.Name)
		}
	}

	if result.Accepted[0].LocalID == result.Accepted[1].LocalID {
		t.Error("local IDs are not unique")
	}
}

func TestValidateFilesAllRejected(t *testing.T) {
	files := []FileRef{
		testFile("a.txt", ""),
		testFile("b.pdf", "application/pdf"),
	}

	result := ValidateFiles(files)
	if len(result.Accepted) != 0 {
		t.Errorf("accepted = %d, want 0", len(result.Accepted))
	}
	if result.RejectedCount != 2 {
		t.Errorf("rejected = %d, want 2", result.RejectedCount)
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Song.mp3", "My Song"},
		{"track.flac", "track"},
		{"/drop/incoming/demo take 2.wav", "demo take 2"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := TitleFromFilename(tt.in); got != tt.want {
			t.Errorf("TitleFromFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
