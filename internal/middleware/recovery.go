package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/bloghive/bloghive/internal/instrumentation"
	"github.com/bloghive/bloghive/pkg"

	log "github.com/sirupsen/logrus"
)

func PanicRecovery(instr *instrumentation.Instrumentation) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("http: panic serving %s: %v\n%s", req.URL.Path, r, debug.Stack())
					if instr != nil {
						instr.CounterHandleRequestPanic.Inc()
					}
					pkg.WriteJSONError(respWriter, http.StatusInternalServerError, "Server error")
				}
			}()

			// handler call
			next.ServeHTTP(respWriter, req)
		})
	}
}
