package llm

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	. "github.com/smartystreets/goconvey/convey"
)

// chunkReader returns one chunk per Read call.
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestParseFragment(t *testing.T) {
	Convey("ParseFragment decodes one frame", t, func() {
		Convey("a valid fragment yields its delta", func() {
			f, ok := ParseFragment([]byte(`{"response":"He","done":false}`))
			So(ok, ShouldBeTrue)
			So(f.Delta, ShouldEqual, "He")
		})

		Convey("a truncated object is the none variant", func() {
			_, ok := ParseFragment([]byte(`{"response":"He`))
			So(ok, ShouldBeFalse)
		})

		Convey("non-object JSON is rejected", func() {
			_, ok := ParseFragment([]byte(`"hello"`))
			So(ok, ShouldBeFalse)
		})

		Convey("the final fragment carries token counts", func() {
			f, ok := ParseFragment([]byte(`{"response":"","done":true,"done_reason":"stop","prompt_eval_count":7,"eval_count":12}`))
			So(ok, ShouldBeTrue)
			So(f.Done, ShouldBeTrue)
			So(f.PromptEvalCount, ShouldEqual, 7)
			So(f.EvalCount, ShouldEqual, 12)
		})
	})
}

func TestAccumulate(t *testing.T) {
	Convey("Accumulate concatenates streamed deltas", t, func() {
		Convey("two fragments become one reply", func() {
			body := "{\"response\":\"He\"}\n{\"response\":\"llo\"}\n"
			acc, err := Accumulate(strings.NewReader(body), nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "Hello")
			So(acc.Deltas(), ShouldEqual, 2)
		})

		Convey("a malformed fragment between valid ones is skipped", func() {
			body := "{\"response\":\"He\"}\n{\"respon\n{\"response\":\"llo\"}\n"
			acc, err := Accumulate(strings.NewReader(body), nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "Hello")
			So(acc.Skipped(), ShouldEqual, 1)
		})

		Convey("a fragment split across reads is reassembled", func() {
			r := &chunkReader{chunks: []string{`{"respo`, "nse\":\"He\"}\n{\"response\":", `"llo"}`}}
			acc, err := Accumulate(r, nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "Hello")
			So(acc.Skipped(), ShouldEqual, 0)
		})

		Convey("fragments delimited only by chunks are each parsed", func() {
			r := &chunkReader{chunks: []string{`{"response":"He"}`, `{"response":"llo"}`}}
			acc, err := Accumulate(r, nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "Hello")
			So(acc.Skipped(), ShouldEqual, 0)
		})

		Convey("a malformed chunk between valid ones skips only itself", func() {
			r := &chunkReader{chunks: []string{`{"response":"He"}`, `{"respon`, `{"response":"llo"}`}}
			acc, err := Accumulate(r, nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "Hello")
			So(acc.Skipped(), ShouldEqual, 1)
		})

		Convey("back-to-back fragments in one chunk are each parsed", func() {
			acc, err := Accumulate(strings.NewReader(`{"response":"He"} {"response":"llo"}`), nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "Hello")
			So(acc.Deltas(), ShouldEqual, 2)
		})

		Convey("a malformed fragment sharing a read with valid ones skips only itself", func() {
			acc, err := Accumulate(strings.NewReader(`{"response":"He"}{"respon{"response":"llo"}`), nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "Hello")
			So(acc.Skipped(), ShouldEqual, 1)
		})

		Convey("a fragment that never ends is dropped once it exceeds the frame limit", func() {
			acc := NewAccumulator(nil)
			_, err := acc.Write([]byte(`{"response":"`))
			So(err, ShouldBeNil)
			_, err = acc.Write([]byte(strings.Repeat("x", maxFrameBytes)))
			So(err, ShouldBeNil)
			So(acc.Skipped(), ShouldEqual, 1)

			_, err = acc.Write([]byte(`{"response":"ok"}`))
			So(err, ShouldBeNil)
			So(acc.Close(), ShouldBeNil)
			So(acc.String(), ShouldEqual, "ok")
		})

		Convey("byte-at-a-time reads give the same result", func() {
			body := "{\"response\":\"Hel\"}\n{\"response\":\"lo\"}\n"
			acc, err := Accumulate(iotest.OneByteReader(strings.NewReader(body)), nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "Hello")
		})

		Convey("a single non-streamed payload is one fragment", func() {
			acc, err := Accumulate(strings.NewReader(`{"model":"llama3","response":"Hi there","done":true}`), nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "Hi there")
			So(acc.Result().Model, ShouldEqual, "llama3")
		})

		Convey("an empty stream yields empty text", func() {
			acc, err := Accumulate(strings.NewReader(""), nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "")
		})

		Convey("a never-parsable stream yields empty text", func() {
			acc, err := Accumulate(strings.NewReader("garbage\nmore garbage\n"), nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "")
			So(acc.Skipped(), ShouldEqual, 2)
		})

		Convey("deltas reach the callback in arrival order", func() {
			var got []string
			body := "{\"response\":\"a\"}\n{\"response\":\"\"}\n{\"response\":\"b\"}\n"
			_, err := Accumulate(strings.NewReader(body), func(d string) error {
				got = append(got, d)
				return nil
			})
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []string{"a", "b"})
		})

		Convey("a read error propagates with the partial text", func() {
			boom := errors.New("connection reset")
			r := &chunkReader{chunks: []string{"{\"response\":\"He\"}\n"}, err: boom}
			acc, err := Accumulate(r, nil)
			So(err, ShouldEqual, boom)
			So(acc.String(), ShouldEqual, "He")
		})

		Convey("an error fragment is recorded", func() {
			acc, err := Accumulate(strings.NewReader(`{"error":"model 'nope' not found"}`), nil)
			So(err, ShouldBeNil)
			So(acc.String(), ShouldEqual, "")
			So(acc.Err(), ShouldContainSubstring, "not found")
		})
	})
}
