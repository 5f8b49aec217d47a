package image

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

func TestNew_Valid(t *testing.T) {
	img, err := New("alice", "cat.jpg", []byte{0x01, 0x02}, "pred-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Name() != "cat.jpg" || img.Owner() != "alice" || img.PredictionID() != "pred-1" {
		t.Errorf("unexpected image: %+v", img)
	}
	if img.Size() != 2 {
		t.Errorf("Size() = %d", img.Size())
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		key     string
		content []byte
	}{
		{"empty owner", "", "cat.jpg", []byte{1}},
		{"empty name", "alice", "", []byte{1}},
		{"nil content", "alice", "cat.jpg", nil},
		{"empty content", "alice", "cat.jpg", []byte{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.owner, tc.key, tc.content, "")
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestContentIsCopied(t *testing.T) {
	src := []byte{1, 2, 3}
	img, _ := New("alice", "a", src, "")
	src[0] = 9
	if img.Content()[0] != 1 {
		t.Error("New must copy content")
	}

	out := img.Content()
	out[1] = 9
	if img.Content()[1] != 2 {
		t.Error("Content must return a copy")
	}
}

func TestOwnedBy(t *testing.T) {
	img := Reconstruct("a", []byte{1}, "alice", "")
	if !img.OwnedBy("alice") {
		t.Error("expected owner match")
	}
	if img.OwnedBy("bob") {
		t.Error("expected owner mismatch")
	}
}

func TestParsePolicy(t *testing.T) {
	for _, s := range []string{"reject", "overwrite"} {
		if _, err := ParsePolicy(s); err != nil {
			t.Errorf("ParsePolicy(%q): %v", s, err)
		}
	}
	if _, err := ParsePolicy("merge"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
