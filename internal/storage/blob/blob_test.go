package blob

import (
	"errors"
	"strings"
	"testing"
)

func TestNewName(t *testing.T) {
	tests := []struct {
		original string
		wantExt  string
	}{
		{"photo.JPG", ".jpg"},
		{"car.png", ".png"},
		{"archive.tar.gz", ".gz"},
		{"README", ""},
		{"../../etc/passwd", ""},
		{`C:\fakepath\img.webp`, ".webp"},
		{"weird.ex t", ""},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			name := NewName(tt.original)
			if tt.wantExt != "" && !strings.HasSuffix(name, tt.wantExt) {
				t.Errorf("имя %q должно оканчиваться на %q", name, tt.wantExt)
			}
			if len(name) != 36+len(tt.wantExt) {
				t.Errorf("имя %q: длина %d, ожидалась %d", name, len(name), 36+len(tt.wantExt))
			}
			if err := ValidName(name); err != nil {
				t.Errorf("сгенерированное имя %q не прошло проверку: %v", name, err)
			}
		})
	}

	if NewName("a.jpg") == NewName("a.jpg") {
		t.Error("имена должны быть уникальны")
	}
}

func TestRefRoundTrip(t *testing.T) {
	ref := Ref("abc.jpg")
	if ref != "/uploads/abc.jpg" {
		t.Fatalf("Ref = %q", ref)
	}
	name, err := NameFromRef(ref)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if name != "abc.jpg" {
		t.Errorf("name = %q, ожидалось abc.jpg", name)
	}
}

func TestNameFromRef_Invalid(t *testing.T) {
	for _, ref := range []string{
		"",
		"abc.jpg",
		"/uploads/",
		"/uploads/..",
		"/uploads/a/b.jpg",
		"/uploads/..\\x.jpg",
		"/files/abc.jpg",
	} {
		if _, err := NameFromRef(ref); !errors.Is(err, ErrInvalidRef) {
			t.Errorf("NameFromRef(%q): ожидалась ErrInvalidRef, получено %v", ref, err)
		}
	}
}

func TestContentTypeByName(t *testing.T) {
	if ct := ContentTypeByName("x.png"); ct != "image/png" {
		t.Errorf("ContentType = %q, ожидался image/png", ct)
	}
	if ct := ContentTypeByName("x"); ct != "application/octet-stream" {
		t.Errorf("ContentType = %q, ожидался application/octet-stream", ct)
	}
}
