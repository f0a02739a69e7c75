// Package transcoder 使用 ffmpeg 将 raw 视频转码为统一高度（默认 1080p）的输出。
package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
)

// ErrTranscode 表示转码失败（损坏/不支持的输入、编码器错误、进程异常退出）。
var ErrTranscode = errors.New("transcoder: conversion failed")

const (
	defaultBinary = "ffmpeg"
	defaultHeight = 1080
	stderrTail    = 2048
)

// runFunc 执行已组装好的 ffmpeg 流，测试中可替换。
type runFunc func(stream *ffmpeg.Stream) error

// Transcoder 单次调用 ffmpeg 完成缩放转码，不做重试，也不支持中途取消。
type Transcoder struct {
	binary string
	height int
	run    runFunc
	log    *log.Helper
}

// New 根据配置构造 Transcoder。
func New(cfg configloader.TranscoderConfig, logger log.Logger) *Transcoder {
	binary := cfg.FFmpegPath
	if binary == "" {
		binary = defaultBinary
	}
	height := cfg.Height
	if height <= 0 {
		height = defaultHeight
	}
	return &Transcoder{
		binary: binary,
		height: height,
		run:    runStream,
		log:    log.NewHelper(logger),
	}
}

// Stream 组装一次转码的 ffmpeg 流，stderr 写入 errOut。
func (t *Transcoder) Stream(inputPath, outputPath string, errOut io.Writer) *ffmpeg.Stream {
	return ffmpeg.Input(inputPath).
		Output(outputPath, ffmpeg.KwArgs{"vf": fmt.Sprintf("scale=-2:%d", t.height)}).
		OverWriteOutput().
		SetFfmpegPath(t.binary).
		WithErrorOutput(errOut).
		Silent(true)
}

// Args 返回转码所需的 ffmpeg 参数（不含可执行文件名）。
func (t *Transcoder) Args(inputPath, outputPath string) []string {
	return t.Stream(inputPath, outputPath, io.Discard).GetArgs()
}

// Convert 将 inputPath 转码写入 outputPath，已存在的输出会被覆盖。
//
// ffmpeg 进程总是运行至自然结束，ctx 只用于日志关联。
func (t *Transcoder) Convert(ctx context.Context, inputPath, outputPath string) error {
	start := time.Now()

	var stderr bytes.Buffer
	if err := t.run(t.Stream(inputPath, outputPath, &stderr)); err != nil {
		tail := tailOf(stderr.String(), stderrTail)
		t.log.WithContext(ctx).Errorf("ffmpeg failed: input=%s output=%s err=%v stderr=%s", inputPath, outputPath, err, tail)
		if tail != "" {
			return fmt.Errorf("%w: %v: %s", ErrTranscode, err, tail)
		}
		return fmt.Errorf("%w: %v", ErrTranscode, err)
	}

	t.log.WithContext(ctx).Infof("ffmpeg finished: input=%s output=%s elapsed=%s", inputPath, outputPath, time.Since(start).Round(time.Millisecond))
	return nil
}

func runStream(stream *ffmpeg.Stream) error {
	return stream.Run()
}

func tailOf(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
