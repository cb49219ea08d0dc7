package api

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// upstreamCORSHeaders lists the response headers stripped from the
// orchestration collaborator's reply so the browser observes only this
// gateway's CORS policy, per spec §4.10.
var upstreamCORSHeaders = []string{
	"Access-Control-Allow-Origin",
	"Access-Control-Allow-Methods",
	"Access-Control-Allow-Headers",
	"Access-Control-Allow-Credentials",
	"Access-Control-Max-Age",
	"Access-Control-Expose-Headers",
}

// NewOrchestrationProxy returns a reverse proxy to base for the fixed set
// of orchestration routes (/trigger, /simulate/*, /mcp/tools). It strips
// any CORS headers the upstream sets so CORSMiddleware remains the single
// source of truth for the browser-facing policy.
func NewOrchestrationProxy(base string, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ModifyResponse = func(resp *http.Response) error {
		for _, h := range upstreamCORSHeaders {
			resp.Header.Del(h)
		}
		return nil
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("orchestration proxy upstream error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, "orchestration collaborator did not respond")
	}
	return proxy, nil
}
