package fetch

import "errors"

var (
	// ErrInvalidProxy is returned when the proxy URL has an unsupported form.
	ErrInvalidProxy = errors.New("invalid proxy: expected socks5://host:port or http://host:port")

	// ErrBodyTooLarge marks a response whose body was cut at the size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)
