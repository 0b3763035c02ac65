package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParseRouteInfo(t *testing.T) {
	tests := []struct {
		path, method   string
		module, action string
	}{
		{"/api/user-note/:id", http.MethodPut, "User Note", "Update"},
		{"/api/user-bookmark", http.MethodPost, "User Bookmark", "Create"},
		{"/api/user/:id", http.MethodDelete, "User", "Delete"},
		{"", http.MethodPost, "unknown", "Create"},
	}
	for _, tt := range tests {
		module, action := parseRouteInfo(tt.path, tt.method)
		if module != tt.module || action != tt.action {
			t.Errorf("parseRouteInfo(%q, %s) = (%q, %q), expected (%q, %q)", tt.path, tt.method, module, action, tt.module, tt.action)
		}
	}
}

func TestMaskSensitiveFields(t *testing.T) {
	body := `{"old_password":"secret1!","new_password":"secret2!","refresh_token":"a.b.c","note_text":"keep me","nested":{"api_secret":"x"}}`
	masked := maskSensitiveFields([]byte(body))

	for _, leaked := range []string{"secret1!", "secret2!", "a.b.c", `"x"`} {
		if strings.Contains(masked, leaked) {
			t.Errorf("masked body still contains %s: %s", leaked, masked)
		}
	}
	if !strings.Contains(masked, "keep me") {
		t.Errorf("non-sensitive fields should survive: %s", masked)
	}
}

func TestMaskSensitiveFields_NonJSON(t *testing.T) {
	if got := maskSensitiveFields([]byte("password=hunter2")); strings.Contains(got, "hunter2") {
		t.Errorf("non-json body leaked: %q", got)
	}
	if got := maskSensitiveFields(nil); got != "" {
		t.Errorf("empty body: expected empty string, got %q", got)
	}
}

func TestMaskSensitiveFields_Truncates(t *testing.T) {
	body := `{"note_text":"` + strings.Repeat("a", 3*maxAuditBody) + `"}`
	if got := maskSensitiveFields([]byte(body)); !strings.HasSuffix(got, "...[truncated]") {
		t.Error("long bodies should be truncated")
	}
}

func TestFormatAuditMessage(t *testing.T) {
	if got := formatAuditMessage(3, "POST", "/api/user-note", 201); got != "[Audit] user=3 POST /api/user-note -> OK" {
		t.Errorf("unexpected message %q", got)
	}
	if got := formatAuditMessage(3, "DELETE", "/api/user-note/9", 404); !strings.HasSuffix(got, "Failed") {
		t.Errorf("unexpected message %q", got)
	}
}

func TestAuditLog_PassesBodyThrough(t *testing.T) {
	sizes := map[string]int{
		"small":     64,
		"at limit":  maxAuditRead,
		"oversized": maxAuditRead + 4096,
	}

	for name, size := range sizes {
		t.Run(name, func(t *testing.T) {
			body := bytes.Repeat([]byte("x"), size)

			var received []byte
			r := gin.New()
			r.Use(AuditLog())
			r.POST("/api/user-note", func(c *gin.Context) {
				received, _ = io.ReadAll(c.Request.Body)
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/user-note", bytes.NewReader(body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Fatalf("status = %d, expected %d", w.Code, http.StatusNoContent)
			}
			if !bytes.Equal(received, body) {
				t.Errorf("handler read %d bytes, expected %d", len(received), len(body))
			}
		})
	}
}
