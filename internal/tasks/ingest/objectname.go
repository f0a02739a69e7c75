// Package ingest 实现原始视频上传通知的处理流水线：解码 → 幂等占位 → 下载 → 转码 → 发布 → 审核 → 落库 → 清理。
package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/elevatr/video-processing-service/internal/models/po"
)

// ErrInvalidObjectName 表示对象名不符合 <uid>-<category>-<timestamp>.<ext> 约定。
var ErrInvalidObjectName = errors.New("ingest: invalid object name")

const processedPrefix = "processed-"

// ObjectRef 是从对象名派生出的全部路由信息。流水线其余部分不再解析原始名称。
type ObjectRef struct {
	Name          string      // 原始对象名
	ID            string      // 第一个 "." 之前的部分
	UID           string      // 第一个 "-" 字段
	Category      po.Category // 第二个 "-" 字段
	Timestamp     string      // 第三个 "-" 字段
	Extension     string      // 最后一个 "." 之后的部分
	ProcessedName string      // processed-<Name>
}

// ParseObjectName 按固定分隔符拆解对象名。allowed 为空时接受任意非空扩展名。
func ParseObjectName(name string, allowed []string) (ObjectRef, error) {
	if name == "" {
		return ObjectRef{}, fmt.Errorf("%w: empty name", ErrInvalidObjectName)
	}
	if strings.ContainsAny(name, `/\`) {
		return ObjectRef{}, fmt.Errorf("%w: %q contains a path separator", ErrInvalidObjectName, name)
	}

	dot := strings.Index(name, ".")
	if dot <= 0 {
		return ObjectRef{}, fmt.Errorf("%w: %q has no extension", ErrInvalidObjectName, name)
	}
	id := name[:dot]
	ext := name[strings.LastIndex(name, ".")+1:]
	if ext == "" {
		return ObjectRef{}, fmt.Errorf("%w: %q has an empty extension", ErrInvalidObjectName, name)
	}
	if !extensionAllowed(ext, allowed) {
		return ObjectRef{}, fmt.Errorf("%w: extension %q is not accepted", ErrInvalidObjectName, ext)
	}

	fields := strings.Split(id, "-")
	if len(fields) != 3 {
		return ObjectRef{}, fmt.Errorf("%w: %q must have exactly three '-' separated fields", ErrInvalidObjectName, id)
	}
	uid, category, ts := fields[0], po.Category(fields[1]), fields[2]
	if uid == "" || ts == "" {
		return ObjectRef{}, fmt.Errorf("%w: %q has an empty field", ErrInvalidObjectName, id)
	}
	if !category.Valid() {
		return ObjectRef{}, fmt.Errorf("%w: unknown category %q", ErrInvalidObjectName, fields[1])
	}
	if !isDigits(ts) {
		return ObjectRef{}, fmt.Errorf("%w: timestamp %q is not numeric", ErrInvalidObjectName, ts)
	}

	return ObjectRef{
		Name:          name,
		ID:            id,
		UID:           uid,
		Category:      category,
		Timestamp:     ts,
		Extension:     ext,
		ProcessedName: processedPrefix + name,
	}, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if strings.EqualFold(ext, strings.TrimPrefix(candidate, ".")) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
