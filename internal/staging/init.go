package staging

import "github.com/google/wire"

// ProviderSet 暴露本地暂存区构造器。
var ProviderSet = wire.NewSet(NewFromConfig)
