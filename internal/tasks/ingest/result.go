package ingest

import "net/http"

// State 是流水线状态机的状态。
type State string

// 流水线状态，按顺序推进，任一步失败进入 StateFailed。
const (
	StateReceived    State = "received"
	StateDownloading State = "downloading"
	StateTranscoding State = "transcoding"
	StateUploading   State = "uploading"
	StateAnalyzing   State = "analyzing"
	StateFinalizing  State = "finalizing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Outcome 是一次处理对调用方（HTTP 推送或拉取 Runner）的最终结论。
type Outcome int

// Outcome 取值
const (
	OutcomeSuccess Outcome = iota
	OutcomeIgnored
	OutcomeBadRequest
	OutcomeDuplicate
	OutcomeNotFound
	OutcomeInternal
)

var outcomeNames = map[Outcome]string{
	OutcomeSuccess:    "success",
	OutcomeIgnored:    "ignored",
	OutcomeBadRequest: "bad_request",
	OutcomeDuplicate:  "duplicate",
	OutcomeNotFound:   "not_found",
	OutcomeInternal:   "internal",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// HTTPStatus 将结论映射为推送入口的响应码。
func (o Outcome) HTTPStatus() int {
	switch o {
	case OutcomeSuccess, OutcomeIgnored:
		return http.StatusOK
	case OutcomeBadRequest, OutcomeDuplicate:
		return http.StatusBadRequest
	case OutcomeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Retryable 仅服务端错误值得由传输层重投；4xx 重投结果不会改变。
func (o Outcome) Retryable() bool {
	return o.HTTPStatus() >= http.StatusInternalServerError
}

// Result 汇总一次处理的结论。
type Result struct {
	Outcome  Outcome
	State    State // StateDone 或 StateFailed
	FailedAt State // 失败发生时所处的步骤
	VideoID  string
	Message  string
	Err      error
}

const successMessage = "Processing finished successfully"
