package server

import "github.com/google/wire"

// ProviderSet 暴露 HTTP Server 及 readiness 依赖。
var ProviderSet = wire.NewSet(
	NewReadinessChecker,
	NewHTTPServer,
)
