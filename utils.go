package main

import (
	"io"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// GetClientIP extracts the client IP address from the request.
// A parseable X-Real-IP header wins over RemoteAddr.
func GetClientIP(r *http.Request) string {
	clientIP := r.RemoteAddr
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		if parsedIP := net.ParseIP(realIP); parsedIP != nil {
			clientIP = realIP
		}
	}
	if host, _, err := net.SplitHostPort(clientIP); err == nil {
		clientIP = host
	}
	return clientIP
}

// safeClose closes closer and logs any error
func safeClose(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("Failed to close resource", zap.Error(err))
	}
}
