package proxy

import (
	_ "embed"
	"net/http"

	"github.com/tidwall/gjson"
)

const (
	insufficientBalanceCode = "1113"

	DemoMessage           = "API key has insufficient balance. Using demo mode with sample responses."
	upstreamFailedMessage = "GLM API request failed"
)

// SampleHTML is the canned landing page served in demo mode.
//
//go:embed sample_landing.html
var SampleHTML string

// IsQuotaExhausted reports whether an upstream failure means the account
// cannot be served: a rate limit, or the insufficient-balance error code.
// detail is the upstream error object.
func IsQuotaExhausted(status int, detail []byte) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return gjson.GetBytes(detail, "code").String() == insufficientBalanceCode
}

// upstreamErrorMessage extracts the message from an upstream error object.
func upstreamErrorMessage(detail []byte) string {
	if msg := gjson.GetBytes(detail, "message").String(); msg != "" {
		return msg
	}
	return upstreamFailedMessage
}

func demoResponse() DemoResponse {
	return DemoResponse{
		Demo:       true,
		Message:    DemoMessage,
		SampleHTML: SampleHTML,
	}
}
