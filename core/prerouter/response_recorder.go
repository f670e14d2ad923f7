package prerouter

import (
	"net/http"
	"time"

	"github.com/caasmo/gatekeeper/core"
)

// Recorder installs the shared core.ResponseRecorder at the start of the
// chain. Metrics and RequestLog read from it.
type Recorder struct {
	app *core.App
}

func NewRecorder(app *core.App) *Recorder {
	return &Recorder{
		app: app,
	}
}

func (rc *Recorder) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &core.ResponseRecorder{
			ResponseWriter: w,
			Status:         http.StatusOK, // handlers that only write a body
			StartTime:      time.Now(),
		}
		next.ServeHTTP(recorder, r)
	})
}
