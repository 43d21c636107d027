package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/logger"
)

const (
	// dataPrefix marks a payload line in an event stream.
	dataPrefix = "data:"

	// doneSentinel terminates a stream. It is never part of the content.
	doneSentinel = "[DONE]"

	// streamReadSize is the chunk size used by ReadFrom.
	streamReadSize = 4 << 10
)

// StreamAssembler turns a chunked event-stream body into one growing message.
// Chunk boundaries do not affect the result: a line split across chunks is
// carried over until its newline arrives.
//
// A StreamAssembler is not safe for concurrent use.
type StreamAssembler struct {
	publish func(content string)

	carry   []byte
	content strings.Builder
}

// NewStreamAssembler creates an assembler that calls publish with the full
// accumulated content after every appended payload. publish may be nil.
func NewStreamAssembler(publish func(content string)) *StreamAssembler {
	return &StreamAssembler{publish: publish}
}

// Feed processes one chunk of the stream.
func (a *StreamAssembler) Feed(chunk []byte) {
	a.carry = append(a.carry, chunk...)

	for {
		idx := bytes.IndexByte(a.carry, '\n')
		if idx < 0 {
			break
		}
		line := a.carry[:idx]
		a.carry = a.carry[idx+1:]
		a.handleLine(line)
	}

	// Reclaim the consumed prefix once the carry is empty.
	if len(a.carry) == 0 {
		a.carry = a.carry[:0:0]
	}
}

// Finish ends the stream. An unterminated trailing line is discarded.
func (a *StreamAssembler) Finish() {
	if len(a.carry) > 0 {
		logger.Debug("Discarding %d bytes of unterminated stream data", len(a.carry))
	}
	a.carry = nil
}

// Content returns the content assembled so far.
func (a *StreamAssembler) Content() string {
	return a.content.String()
}

// ReadFrom feeds r to the assembler until EOF, then finishes the stream.
// A read failure is returned as domain.ErrTransientNetwork; content already
// assembled is kept. A cancelled ctx stops processing with ctx.Err().
func (a *StreamAssembler) ReadFrom(ctx context.Context, r io.Reader) error {
	buf := make([]byte, streamReadSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			a.Feed(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			a.Finish()
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: read stream: %w", domain.ErrTransientNetwork, err)
		}
	}
}

func (a *StreamAssembler) handleLine(line []byte) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return
	}
	if !utf8.Valid(line) {
		logger.Debug("%v: skipping line of %d bytes", domain.ErrStreamDecode, len(line))
		return
	}

	payload := strings.TrimPrefix(string(line[len(dataPrefix):]), " ")
	if payload == doneSentinel {
		return
	}

	a.content.WriteString(payload)
	if a.publish != nil {
		a.publish(a.content.String())
	}
}
