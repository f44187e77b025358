package llm

import (
	"io"
	"strings"
	"testing"
)

func chunkLine(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"}}]}` + "\n\n"
}

func TestDecodeEventStream(t *testing.T) {
	stream := chunkLine("Hel") + chunkLine("lo") + "data: [DONE]\n\n"

	var got []string
	err := DecodeEventStream(strings.NewReader(stream), func(delta string) {
		got = append(got, delta)
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "") != "Hello" {
		t.Errorf("unexpected deltas %v", got)
	}
}

func TestDecodeEventStreamSkipsMalformed(t *testing.T) {
	stream := chunkLine("a") + "data: {not json}\n\n" + "data: {\"choices\":[]}\n\n" + chunkLine("b") + "data: [DONE]\n\n"

	var got []string
	err := DecodeEventStream(strings.NewReader(stream), func(delta string) {
		got = append(got, delta)
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "") != "ab" {
		t.Errorf("malformed chunks should be skipped, got %v", got)
	}
}

func TestDecodeEventStreamStopsAtDone(t *testing.T) {
	stream := chunkLine("before") + "data: [DONE]\n\n" + chunkLine("after")

	var got []string
	err := DecodeEventStream(strings.NewReader(stream), func(delta string) {
		got = append(got, delta)
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "") != "before" {
		t.Errorf("nothing after [DONE] should be emitted, got %v", got)
	}
}

func TestDecodeEventStreamCRLF(t *testing.T) {
	stream := strings.ReplaceAll(chunkLine("x"), "\n", "\r\n") + "data: [DONE]\r\n"

	var got []string
	err := DecodeEventStream(strings.NewReader(stream), func(delta string) {
		got = append(got, delta)
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "") != "x" {
		t.Errorf("CRLF lines should decode, got %v", got)
	}
}

// splitReader hands out one byte per Read so frames arrive fragmented, the
// way a real network stream delivers them.
type splitReader struct {
	data string
	pos  int
}

func (r *splitReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

func TestDecodeEventStreamReassemblesSplitFrames(t *testing.T) {
	stream := chunkLine("frag") + chunkLine("mented") + "data: [DONE]\n\n"

	var got []string
	err := DecodeEventStream(&splitReader{data: stream}, func(delta string) {
		got = append(got, delta)
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "") != "fragmented" {
		t.Errorf("split frames should reassemble, got %v", got)
	}
}

func TestDecodeEventStreamWithoutDone(t *testing.T) {
	// A stream that just ends is not an error; EOF terminates it.
	var got []string
	err := DecodeEventStream(strings.NewReader(chunkLine("x")), func(delta string) {
		got = append(got, delta)
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "") != "x" {
		t.Errorf("unexpected deltas %v", got)
	}
}
