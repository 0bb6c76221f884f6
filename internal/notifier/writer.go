package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/robotomize/go-xunit-slack/internal/slack"
)

var _ Sender = (*WriterSender)(nil)

// WriterSender prints messages as indented JSON instead of posting them.
type WriterSender struct {
	w io.Writer
}

func NewWriterSender(w io.Writer) *WriterSender {
	return &WriterSender{w: w}
}

func (s *WriterSender) PostMessage(ctx context.Context, msg slack.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msg); err != nil {
		return fmt.Errorf("json.NewEncoder.Encode: %w", err)
	}

	return nil
}
