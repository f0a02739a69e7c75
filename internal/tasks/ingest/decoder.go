package ingest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode 表示通知信封或消息体无法解析，或缺少对象名。
var ErrDecode = errors.New("ingest: decode notification")

const (
	attrEventType          = "eventType"
	gcsObjectFinalizeEvent = "OBJECT_FINALIZE"
)

// Notification 是一次上传通知中流水线需要的信息。
type Notification struct {
	Name      string // 对象名（必填）
	Bucket    string
	EventType string // 来自消息属性，可能为空
	MessageID string
}

// Finalized 判断通知是否为对象写入完成事件；未携带事件类型时按写入完成处理。
func (n *Notification) Finalized() bool {
	return n.EventType == "" || strings.EqualFold(n.EventType, gcsObjectFinalizeEvent)
}

type pushEnvelope struct {
	Message *pushMessage `json:"message"`
	// Subscription 仅用于日志
	Subscription string `json:"subscription"`
}

type pushMessage struct {
	Data       string            `json:"data"`
	MessageID  string            `json:"messageId"`
	Attributes map[string]string `json:"attributes"`
}

type objectPayload struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket"`
}

// DecodePush 解析 Pub/Sub push 信封：message.data 为 base64 编码的 UTF-8 JSON。
func DecodePush(body []byte) (*Notification, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrDecode)
	}

	var env pushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrDecode, err)
	}
	if env.Message == nil {
		return nil, fmt.Errorf("%w: missing message", ErrDecode)
	}
	if env.Message.Data == "" {
		return nil, fmt.Errorf("%w: missing message data", ErrDecode)
	}

	data, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: message data is not base64: %v", ErrDecode, err)
	}

	n, err := DecodeData(data, env.Message.Attributes)
	if err != nil {
		return nil, err
	}
	n.MessageID = env.Message.MessageID
	return n, nil
}

// DecodeData 解析消息体 JSON（拉取模式下直接使用 msg.Data）。
func DecodeData(data []byte, attributes map[string]string) (*Notification, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	var payload objectPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrDecode, err)
	}
	if payload.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrDecode)
	}

	return &Notification{
		Name:      payload.Name,
		Bucket:    payload.Bucket,
		EventType: attributes[attrEventType],
	}, nil
}
