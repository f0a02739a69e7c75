package transcoder

import "github.com/google/wire"

// ProviderSet 暴露转码器构造器。
var ProviderSet = wire.NewSet(New)
