// Package notify holds report-delivery transports. The delivery channel itself
// is an external concern; this package ships a log transport for runs without
// a configured mailer, plus in-memory fakes under memory/.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// LogNotifier writes the report to the log instead of delivering it.
type LogNotifier struct {
	logger *zap.Logger
	sent   int
}

// NewLog creates a LogNotifier.
func NewLog(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the report and returns a pseudo receipt.
func (n *LogNotifier) Send(_ context.Context, recipients []string, subject, body string, attachment []byte, attachmentName string) (string, error) {
	n.sent++
	n.logger.Info("report delivery (log transport)",
		zap.Strings("recipients", recipients),
		zap.String("subject", subject),
		zap.String("attachment", attachmentName),
		zap.Int("attachment_bytes", len(attachment)),
		zap.String("body", body))
	return fmt.Sprintf("logged-%d", n.sent), nil
}
