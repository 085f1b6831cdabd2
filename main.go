package main

import "go.uber.org/zap"

// logger is the process-wide structured logger, replaced by initLoggerWrapper
var logger = zap.NewNop()

//	@title						Device Heartbeat API
//	@version					0.1.0
//	@description				Receives device heartbeats and keeps a concurrent cache of device liveness.
//	@BasePath					/
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
func main() {
	Execute()
}
