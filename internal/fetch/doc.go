// Package fetch downloads pages for the crawler.
//
// A Fetcher wraps an http.Client and never returns a Go error from
// Download. The outcome of every request, including transport failures,
// is carried by a Response so the worker loop can treat all failures the
// same way: no outgoing links, URL still marked complete.
//
// Requests can go through an optional proxy (SOCKS5 via golang.org/x/net/proxy
// or a plain HTTP proxy), are paced by a shared token bucket from
// golang.org/x/time/rate, and are retried with exponential backoff on
// network errors and 5xx responses.
package fetch
