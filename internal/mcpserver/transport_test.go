package mcpserver

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestReadMessageContentLength(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	in := strings.NewReader("Content-Length: " + itoa(len(body)) + "\r\n\r\n" + body)
	tr := NewTransport(in, io.Discard, modeContentLength)

	msg, mode, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if mode != modeContentLength {
		t.Fatalf("mode = %q, want content-length", mode)
	}
	if string(msg) != body {
		t.Fatalf("msg = %q, want %q", msg, body)
	}
}

func TestReadMessageJSONL(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":2,"method":"ping"}`
	in := strings.NewReader(body + "\n")
	tr := NewTransport(in, io.Discard, modeContentLength)

	msg, mode, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if mode != modeJSONL {
		t.Fatalf("mode = %q, want jsonl", mode)
	}
	if string(msg) != body {
		t.Fatalf("msg = %q, want %q", msg, body)
	}
}

func TestReadMessageSkipsLeadingNoise(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":3,"method":"ping"}`
	input := "\n" + "some log line that is not a frame\n" + "Content-Length: not-a-number\r\n\r\n" +
		"Content-Length: " + itoa(len(body)) + "\r\n\r\n" + body
	tr := NewTransport(strings.NewReader(input), io.Discard, modeContentLength)

	msg, _, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(msg) != body {
		t.Fatalf("msg = %q, want %q", msg, body)
	}
}

func TestReadMessageRejectsOutOfRangeLengthWithoutConsuming(t *testing.T) {
	good := `{"jsonrpc":"2.0","id":4,"method":"ping"}`
	cases := []string{"0", "-5", "99999999"}
	for _, length := range cases {
		input := "Content-Length: " + length + "\r\n\r\n" + good
		tr := NewTransport(strings.NewReader(input), io.Discard, modeContentLength)

		msg, mode, err := tr.ReadMessage()
		if err != nil {
			t.Fatalf("length=%s: ReadMessage: %v", length, err)
		}
		if mode != modeJSONL {
			t.Fatalf("length=%s: mode = %q, want jsonl (fell through to the line after the rejected header)", length, mode)
		}
		if string(msg) != good {
			t.Fatalf("length=%s: msg = %q, want %q (claimed bytes must not have been consumed as the header's body)", length, msg, good)
		}
	}
}

func TestReadMessagePartialBodyAtEOFYieldsNoMessage(t *testing.T) {
	input := "Content-Length: 100\r\n\r\n" + `{"jsonrpc":"2.0"`
	tr := NewTransport(strings.NewReader(input), io.Discard, modeContentLength)

	_, _, err := tr.ReadMessage()
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestWriteMessageContentLength(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(strings.NewReader(""), &buf, modeContentLength)

	if err := tr.WriteMessage(map[string]any{"jsonrpc": "2.0", "id": 1}, ""); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Content-Length: ") {
		t.Fatalf("output = %q, want Content-Length prefix", out)
	}
	if !strings.Contains(out, "\r\n\r\n{") {
		t.Fatalf("output = %q, want header/body separator", out)
	}
}

func TestWriteMessageJSONL(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(strings.NewReader(""), &buf, modeContentLength)

	if err := tr.WriteMessage(map[string]any{"jsonrpc": "2.0", "id": 1}, modeJSONL); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "}\n") {
		t.Fatalf("output = %q, want trailing newline with no Content-Length header", buf.String())
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}
