package utils

import (
	"strings"
	"testing"
)

func TestRenderMarkdownStripsScripts(t *testing.T) {
	out := string(RenderMarkdown("Привет <script>alert(1)</script> мир"))
	if strings.Contains(out, "<script>") {
		t.Errorf("script tag survived sanitizing: %s", out)
	}
	if !strings.Contains(out, "Привет") {
		t.Errorf("text content lost: %s", out)
	}
}

func TestRenderMarkdownFormats(t *testing.T) {
	out := string(RenderMarkdown("**жирный** текст"))
	if !strings.Contains(out, "<strong>") {
		t.Errorf("markdown emphasis not rendered: %s", out)
	}
}
