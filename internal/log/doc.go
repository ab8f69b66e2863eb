// Package log provides slog-based logging for campuscrawl with automatic
// redaction of credentials and session identifiers.
//
// The crawler logs every URL it fetches. Academic sites frequently embed
// session identifiers (jsessionid, PHPSESSID, sid, token) in links, and the
// optional cache proxy may carry credentials in its URL. SecureHandler wraps
// any slog.Handler and rewrites such values before they reach the sink:
//   - attributes whose key names a credential are replaced by MaskValue
//   - URL-valued string attributes have session-like query parameters and
//     userinfo passwords masked, keeping the rest of the URL readable
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("fetched", "url", "https://www.ics.uci.edu/?jsessionid=abc")
//	// url=https://www.ics.uci.edu/?jsessionid=***REDACTED***
package log
