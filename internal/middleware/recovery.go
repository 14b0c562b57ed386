package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into a 500 response and logs it with the stack.
//
// Browsers (Accept contains "text/html") get errors/500.html; everything else
// gets the JSON envelope
//
//	{"code": 500, "message": "internal server error", "data": null}
//
// Both carry the request id so a report can be matched to the log line.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", err),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				c.Abort()
				requestID := GetRequestID(c)
				if acceptsHTML(c) {
					renderHTMLError(c, requestID)
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{
					"code":       http.StatusInternalServerError,
					"message":    "internal server error",
					"data":       nil,
					"request_id": requestID,
				})
			}
		}()
		c.Next()
	}
}

// renderHTMLError falls back to plain text when no HTML renderer is configured.
func renderHTMLError(c *gin.Context, requestID string) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("500 Internal Server Error"))
		}
	}()
	c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{
		"Title":     "Server Error",
		"RequestID": requestID,
	})
}

func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html")
}
