package goSession

import (
	"net"
	"net/url"
	"time"
)

// LintWarning is a configuration that is valid but probably unintended.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint returns advisory warnings. It does not replace Validate.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if c.Session.Timeout <= 0 {
		add("timeout_always_relogin", "Session Timeout <= 0 requires sign-in after every background period")
	} else if c.Session.Timeout > 24*time.Hour {
		add("timeout_long", "Session Timeout above 24h rarely expires a session")
	}

	if u, err := url.Parse(c.Endpoints.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		add("insecure_base_url", "tokens are sent over plain http")
	}

	if c.HTTP.PreemptiveRefreshSkew > 5*time.Minute {
		add("preemptive_skew_large", "HTTP PreemptiveRefreshSkew above 5m refreshes most short-lived tokens on every call")
	}

	if c.HTTP.Timeout > time.Minute {
		add("http_timeout_long", "HTTP Timeout above 1m keeps refresh waiters blocked for a long time")
	}

	if !c.Telemetry.Enabled {
		add("telemetry_disabled", "request failures are not reported")
	} else if !c.Telemetry.DropIfFull {
		add("telemetry_blocking", "a slow telemetry sink can delay failed calls by up to Telemetry EnqueueTimeout")
	}

	return ws
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
