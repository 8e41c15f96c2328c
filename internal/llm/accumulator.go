package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Fragment is one parsed piece of a streamed generate response.
type Fragment struct {
	Delta           string `json:"response"`
	Model           string `json:"model,omitempty"`
	Done            bool   `json:"done,omitempty"`
	DoneReason      string `json:"done_reason,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

// ParseFragment decodes one frame. ok is false when the frame is not a
// single JSON object; callers skip such frames.
func ParseFragment(frame []byte) (f Fragment, ok bool) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 || frame[0] != '{' {
		return Fragment{}, false
	}
	if err := json.Unmarshal(frame, &f); err != nil {
		return Fragment{}, false
	}
	return f, true
}

// maxFrameBytes bounds a fragment still waiting for its end. A longer
// frame is dropped and counted as skipped.
const maxFrameBytes = 1 << 20

// Accumulator concatenates the deltas of a fragment stream. Fragments may
// be newline-delimited or arrive back to back, one or more per chunk. An
// incomplete trailing fragment is held until more data or Close, so a
// fragment split across reads is still parsed whole.
type Accumulator struct {
	onDelta func(string) error

	pending bytes.Buffer
	text    strings.Builder

	parsed  int
	skipped int
	deltas  int

	model      string
	doneReason string
	tokensIn   int
	tokensOut  int
	lastError  string
}

// NewAccumulator returns an accumulator. onDelta may be nil; when set it
// receives every non-empty delta in arrival order and its error aborts Write.
func NewAccumulator(onDelta func(string) error) *Accumulator {
	return &Accumulator{onDelta: onDelta}
}

// Write feeds a chunk of the response body.
func (a *Accumulator) Write(chunk []byte) (int, error) {
	// start is where this chunk begins inside pending.
	start := a.pending.Len()
	a.pending.Write(chunk)

	for {
		buf := a.pending.Bytes()
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		frame := make([]byte, i)
		copy(frame, buf[:i])
		a.pending.Next(i + 1)

		boundary := start
		if start > i {
			boundary = -1
		}
		start -= i + 1
		if start < 0 {
			start = 0
		}
		if _, err := a.split(frame, boundary, true); err != nil {
			return len(chunk), err
		}
	}

	if a.pending.Len() == 0 {
		return len(chunk), nil
	}
	rest, err := a.split(a.pending.Bytes(), start, false)
	tail := append([]byte(nil), rest...)
	a.pending.Reset()
	if len(tail) > maxFrameBytes {
		a.skipped++
		tail = nil
	}
	a.pending.Write(tail)
	return len(chunk), err
}

// Close parses whatever is still held.
func (a *Accumulator) Close() error {
	if a.pending.Len() == 0 {
		return nil
	}
	frame := append([]byte(nil), a.pending.Bytes()...)
	a.pending.Reset()
	_, err := a.split(frame, -1, true)
	return err
}

// split consumes every complete JSON value in buf and returns the
// incomplete tail. When final is set the tail is counted as skipped
// instead. boundary is the offset of the latest chunk start in buf, or -1.
// On a syntax error the bytes before boundary, or before the next '{' when
// there is no boundary, are skipped as one frame and parsing resumes there.
func (a *Accumulator) split(buf []byte, boundary int, final bool) ([]byte, error) {
	for {
		trimmed := bytes.TrimLeft(buf, " \t\r\n")
		boundary -= len(buf) - len(trimmed)
		buf = trimmed
		if len(buf) == 0 {
			return nil, nil
		}

		dec := json.NewDecoder(bytes.NewReader(buf))
		var raw json.RawMessage
		err := dec.Decode(&raw)
		switch {
		case err == nil:
			n := int(dec.InputOffset())
			if cerr := a.consume(buf[:n]); cerr != nil {
				return buf[n:], cerr
			}
			buf = buf[n:]
			boundary -= n
		case errors.Is(err, io.ErrUnexpectedEOF) && !final:
			return buf, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			a.skipped++
			return nil, nil
		default:
			a.skipped++
			next := boundary
			if next <= 0 || next >= len(buf) {
				next = bytes.IndexByte(buf[1:], '{') + 1
			}
			if next <= 0 {
				return nil, nil
			}
			buf = buf[next:]
			boundary = -1
		}
	}
}

func (a *Accumulator) consume(frame []byte) error {
	if len(bytes.TrimSpace(frame)) == 0 {
		return nil
	}
	f, ok := ParseFragment(frame)
	if !ok {
		a.skipped++
		return nil
	}
	a.parsed++

	if f.Model != "" {
		a.model = f.Model
	}
	if f.Error != "" {
		a.lastError = f.Error
	}
	if f.Done {
		a.doneReason = f.DoneReason
		a.tokensIn = f.PromptEvalCount
		a.tokensOut = f.EvalCount
	}
	if f.Delta == "" {
		return nil
	}

	a.text.WriteString(f.Delta)
	a.deltas++
	if a.onDelta != nil {
		return a.onDelta(f.Delta)
	}
	return nil
}

// String returns the text accumulated so far.
func (a *Accumulator) String() string { return a.text.String() }

// Skipped returns how many frames failed to parse.
func (a *Accumulator) Skipped() int { return a.skipped }

// Parsed returns how many frames parsed as fragments.
func (a *Accumulator) Parsed() int { return a.parsed }

// Deltas returns how many non-empty deltas were appended.
func (a *Accumulator) Deltas() int { return a.deltas }

// Err returns the last backend-reported error fragment, if any.
func (a *Accumulator) Err() string { return a.lastError }

// Result summarises the stream in the shared response shape.
func (a *Accumulator) Result() *CompletionResponse {
	return &CompletionResponse{
		Content:    a.text.String(),
		Model:      a.model,
		TokensIn:   a.tokensIn,
		TokensOut:  a.tokensOut,
		StopReason: a.doneReason,
	}
}

// readChunkSize bounds a single Read of the response body.
const readChunkSize = 4096

// Accumulate drains r chunk by chunk into a new Accumulator. Read errors
// other than io.EOF are returned with whatever was accumulated so far.
func Accumulate(r io.Reader, onDelta func(string) error) (*Accumulator, error) {
	acc := NewAccumulator(onDelta)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := acc.Write(buf[:n]); werr != nil {
				return acc, werr
			}
		}
		if errors.Is(err, io.EOF) {
			return acc, acc.Close()
		}
		if err != nil {
			return acc, err
		}
	}
}
