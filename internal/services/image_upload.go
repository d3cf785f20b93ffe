package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"yatube/internal/utils"
)

// Image uploads go to local disk under MediaRoot, the same layout the
// templates expect when building /media/ URLs.

const maxImageSize = 10 * 1024 * 1024 // 10MB

// MediaRoot resolves the base directory for uploaded files.
func MediaRoot() string {
	root := os.Getenv("MEDIA_ROOT")
	if root == "" {
		root = "media"
	}
	return root
}

// SaveImage validates and stores an uploaded post image, returning the
// relative reference ("posts/<name>") persisted on the Post.
func SaveImage(file multipart.File, header *multipart.FileHeader) (string, error) {
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("only image uploads are allowed")
	}
	if header.Size > maxImageSize {
		return "", fmt.Errorf("image exceeds the 10MB limit")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	name := utils.RandStringBytesMaskImpr(12) + ext

	dir := filepath.Join(MediaRoot(), "posts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}

	return path.Join("posts", name), nil
}
