package proxy

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
	deltaPath    = "choices.0.delta.content"
	maxFrameSize = 1 << 20
)

// Relay reads upstream SSE lines from r and calls emit once per non-empty
// delta, in arrival order. Frames that are not valid JSON are counted and
// skipped. It stops at the [DONE] sentinel, at EOF, when emit fails, or when
// ctx is cancelled.
func Relay(ctx context.Context, r io.Reader, emit func(delta string) error) (RelayStats, error) {
	var stats RelayStats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		stats.Frames++

		data := line[len(dataPrefix):]
		if data == doneSentinel {
			stats.Done = true
			return stats, nil
		}
		if !gjson.Valid(data) {
			stats.Dropped++
			continue
		}

		delta := gjson.Get(data, deltaPath).String()
		if delta == "" {
			continue
		}
		if err := emit(delta); err != nil {
			return stats, err
		}
		stats.Deltas++
	}

	if err := scanner.Err(); err != nil {
		return stats, err
	}
	return stats, ctx.Err()
}
