package prerouter

import (
	"net/http"

	"github.com/caasmo/gatekeeper/core"
)

// Decision is the outcome of the access check.
type Decision int

const (
	Allow Decision = iota
	Block
)

func (d Decision) String() string {
	if d == Block {
		return "block"
	}
	return "allow"
}

// BlockIp answers forward-auth subrequests: 403 for clients in the banned
// set, otherwise the next handler.
type BlockIp struct {
	app *core.App
}

func NewBlockIp(app *core.App) *BlockIp {
	return &BlockIp{app: app}
}

// Decide resolves the client IP, makes sure the banned set is fresh enough
// and checks membership. A failed refresh does not fail the request: the
// resident set is used.
func (b *BlockIp) Decide(r *http.Request) (Decision, string) {
	ip := b.app.ClientIP(r)

	// Errors are logged by the refresher.
	_ = b.app.Refresher().Ensure(r.Context())

	if ip == core.UnknownIP {
		if b.app.Config().Blocklist.FailClosed {
			return Block, ip
		}
		return Allow, ip
	}

	if b.app.Banned().Contains(ip) {
		return Block, ip
	}
	return Allow, ip
}

func (b *BlockIp) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, ip := b.Decide(r)

		if obs := b.app.Decisions(); obs != nil {
			obs.ObserveDecision(decision.String())
		}

		if decision == Block {
			b.app.Logger().Warn("BLOCKED",
				"ip", ip,
				"path", core.OriginalPath(r),
				"host", core.OriginalHost(r),
				"method", r.Method)
			if offenders := b.app.Offenders(); offenders != nil {
				offenders.Record(ip)
			}
			w.WriteHeader(http.StatusForbidden)
			return
		}

		b.app.Logger().Debug("allowed", "ip", ip, "path", core.OriginalPath(r))
		next.ServeHTTP(w, r)
	})
}
