package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/webcrawler/backend/internal/services"
)

const (
	maxAuditBody = 2000
	// maxAuditRead bounds how much of a request body is buffered for the
	// audit record. Larger bodies still reach the handler in full.
	maxAuditRead = 1 << 20
)

var sensitiveKeys = []string{"password", "token", "secret"}

// AuditLog records write operations (POST/PUT/DELETE) to system_logs.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxAuditRead+1))
			c.Request.Body = replayBody{
				Reader: io.MultiReader(bytes.NewReader(raw), c.Request.Body),
				Closer: c.Request.Body,
			}
			if len(raw) > maxAuditRead {
				body = "[body too large, omitted]"
			} else {
				body = maskSensitiveFields(raw)
			}
		}

		c.Next()

		userID := GetUserID(c)
		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		var uid *uint
		if userID > 0 {
			uid = &userID
		}

		services.LogInfo(module, action, formatAuditMessage(userID, method, c.Request.URL.Path, status), uid, c.ClientIP(), c.Request.UserAgent(), map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   body,
			"audit":  true,
		})
	}
}

// parseRouteInfo derives module and action from a route pattern,
// e.g. "/api/user-note/:id" + PUT gives ("User Note", "Update").
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	module, _, _ = strings.Cut(path, "/")
	if module == "" {
		return "unknown", methodAction(method)
	}

	words := strings.Fields(strings.ReplaceAll(module, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " "), methodAction(method)
}

func methodAction(method string) string {
	switch method {
	case http.MethodPost:
		return "Create"
	case http.MethodPut:
		return "Update"
	case http.MethodDelete:
		return "Delete"
	}
	return method
}

// replayBody serves the buffered prefix followed by the unread rest of the
// request body.
type replayBody struct {
	io.Reader
	io.Closer
}

func formatAuditMessage(userID uint, method, path string, status int) string {
	result := "OK"
	if status < 200 || status >= 300 {
		result = "Failed"
	}
	return fmt.Sprintf("[Audit] user=%d %s %s -> %s", userID, method, path, result)
}

// maskSensitiveFields returns the JSON body with credential-like values
// replaced. Non-JSON bodies are not recorded.
func maskSensitiveFields(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "[non-json body omitted]"
	}

	out, err := json.Marshal(maskValue(payload))
	if err != nil {
		return ""
	}
	s := string(out)
	if len(s) > maxAuditBody {
		s = s[:maxAuditBody] + "...[truncated]"
	}
	return s
}

func maskValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, inner := range t {
			if isSensitiveKey(k) {
				t[k] = "***"
				continue
			}
			t[k] = maskValue(inner)
		}
	case []interface{}:
		for i, inner := range t {
			t[i] = maskValue(inner)
		}
	}
	return v
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
