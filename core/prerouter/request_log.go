package prerouter

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caasmo/gatekeeper/core"
)

const logMessage = "http_request"

// cutStr limits string length by adding ellipsis if needed
func cutStr(str string, max int) string {
	if max > 0 && len(str) > max {
		return str[:max] + "..."
	}
	return str
}

var logType = slog.String("type", "request")

// RequestLog logs one line per request when Log.Request.Activated is set.
type RequestLog struct {
	app *core.App
}

func NewRequestLog(app *core.App) *RequestLog {
	return &RequestLog{
		app: app,
	}
}

func (rl *RequestLog) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !rl.app.Config().Log.Request.Activated {
			next.ServeHTTP(w, req)
			return
		}

		rec, ok := w.(*core.ResponseRecorder)
		if !ok {
			rec = &core.ResponseRecorder{ResponseWriter: w, Status: http.StatusOK, StartTime: time.Now()}
		}

		next.ServeHTTP(rec, req)

		limits := rl.app.Config().Log.Request.Limits
		attrs := make([]any, 0, 13)
		attrs = append(attrs, logType)
		attrs = append(attrs, slog.String("method", strings.ToUpper(req.Method)))
		attrs = append(attrs, slog.String("uri", cutStr(req.URL.RequestURI(), limits.URILength)))
		attrs = append(attrs, slog.String("forwarded_uri", cutStr(core.OriginalPath(req), limits.URILength)))
		attrs = append(attrs, slog.String("host", cutStr(core.OriginalHost(req), limits.URILength)))
		attrs = append(attrs, slog.Int("status", rec.Status))
		attrs = append(attrs, slog.Int64("bytes", rec.BytesWritten))
		attrs = append(attrs, slog.String("duration", rec.Duration().String()))
		attrs = append(attrs, slog.String("client_ip", cutStr(rl.app.ClientIP(req), limits.RemoteIPLength)))
		attrs = append(attrs, slog.String("remote_ip", cutStr(core.PeerIP(req), limits.RemoteIPLength)))
		attrs = append(attrs, slog.String("user_agent", cutStr(req.UserAgent(), limits.UserAgentLength)))
		attrs = append(attrs, slog.String("referer", cutStr(req.Referer(), limits.RefererLength)))
		attrs = append(attrs, slog.String("proto", req.Proto))

		rl.app.Logger().Info(logMessage, attrs...)
	})
}
