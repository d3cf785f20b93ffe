package services

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

func uploadRequest(t *testing.T, filename, contentType string, data []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart failed: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	w.Close()

	req := httptest.NewRequest("POST", "/create", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	file, header, err := req.FormFile("image")
	if err != nil {
		t.Fatalf("FormFile failed: %v", err)
	}
	return file, header
}

func TestSaveImage(t *testing.T) {
	t.Setenv("MEDIA_ROOT", t.TempDir())

	file, header := uploadRequest(t, "small.gif", "image/gif", smallGIF)
	defer file.Close()

	ref, err := SaveImage(file, header)
	if err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	if !strings.HasPrefix(ref, "posts/") || !strings.HasSuffix(ref, ".gif") {
		t.Errorf("reference = %q, want posts/<name>.gif", ref)
	}

	stored, err := os.ReadFile(filepath.Join(MediaRoot(), filepath.FromSlash(ref)))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if !bytes.Equal(stored, smallGIF) {
		t.Error("stored bytes differ from upload")
	}
}

func TestSaveImageRejectsNonImage(t *testing.T) {
	t.Setenv("MEDIA_ROOT", t.TempDir())

	file, header := uploadRequest(t, "notes.txt", "text/plain", []byte("not an image"))
	defer file.Close()

	if _, err := SaveImage(file, header); err == nil {
		t.Error("non-image upload accepted")
	}
}
