package gcs

import "github.com/google/wire"

// ProviderSet 暴露 GCS 客户端与视频存储的构造器。
var ProviderSet = wire.NewSet(
	NewClient,
	NewVideoStore,
)
