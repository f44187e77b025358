package llm

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/gialup03/luup-agent/errors"
)

// doneSentinel terminates an OpenAI-compatible event stream.
const doneSentinel = "[DONE]"

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// DecodeEventStream consumes a Server-Sent-Events stream as emitted by an
// OpenAI-chat-completions-compatible endpoint and emits each non-empty
// content delta in arrival order. Lines are reassembled across reads, so a
// frame split between two network chunks decodes correctly. A malformed
// chunk is skipped and the stream continues; the literal "data: [DONE]"
// line stops consumption.
func DecodeEventStream(r io.Reader, emit func(delta string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == doneSentinel {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			emit(delta)
		}
	}
	return errors.Wrapf(scanner.Err(), "event stream read failed")
}
