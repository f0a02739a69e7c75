package moderation

import "github.com/google/wire"

// ProviderSet 暴露内容审核客户端与 Analyzer。
var ProviderSet = wire.NewSet(
	NewClient,
	NewAnalyzer,
)
