// Package main boots the Kratos HTTP entrypoint of the video processing service.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
	"github.com/elevatr/video-processing-service/internal/tasks/ingest"
	"github.com/elevatr/video-processing-service/internal/tasks/sweeper"

	_ "go.uber.org/automaxprocs"
)

var id, _ = os.Hostname()

// newApp 组装 Kratos 应用：HTTP push 入口常驻，拉取 Runner 与巡检任务按配置启用。
func newApp(logger log.Logger, meta configloader.ServiceMetadata, hs *http.Server, runner *ingest.Runner, sw *sweeper.Sweeper) *kratos.App {
	servers := []transport.Server{hs}
	if runner != nil {
		servers = append(servers, runner)
	}
	if sw != nil {
		servers = append(servers, sw)
	}
	return kratos.New(
		kratos.ID(id),
		kratos.Name(meta.Name),
		kratos.Version(meta.Version),
		kratos.Metadata(map[string]string{"env": meta.Environment}),
		kratos.Logger(logger),
		kratos.Server(servers...),
	)
}

func main() {
	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	flag.Parse()

	// Assemble all dependencies via Wire and create the Kratos app.
	app, cleanup, err := wireApp(context.Background(), configloader.Params{ConfPath: *confFlag})
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// Start the application and block until a stop signal is received.
	if err := app.Run(); err != nil {
		panic(err)
	}
}
