package nodes

import (
	"log/slog"

	"github.com/sdfgeoff/slambot/internal/logging"
	"github.com/sdfgeoff/slambot/internal/message"
	"github.com/sdfgeoff/slambot/internal/router"
)

// LogTap surfaces router traffic through the structured logger. With all
// set it taps every topic-routed frame; otherwise only diagnostics.
type LogTap struct {
	mb  *router.Mailbox
	log *slog.Logger
}

func NewLogTap(all bool) *LogTap {
	mb := router.NewMailbox()
	if all {
		mb.Subscribe(router.TopicAll)
	} else {
		mb.Subscribe(message.TopicDiagnosticMsg)
	}
	return &LogTap{mb: mb, log: logging.L()}
}

func (t *LogTap) Mailbox() *router.Mailbox { return t.mb }

func (t *LogTap) Tick() {
	for _, env := range t.mb.FetchAll() {
		from := uint16(0)
		if env.From != nil {
			from = *env.From
		}
		if diag, ok := env.Data.(*message.DiagnosticMsg); ok {
			attrs := make([]any, 0, 2*len(diag.Values)+6)
			attrs = append(attrs, "from", from, "level", string(diag.Level), "time", env.Time)
			for _, kv := range diag.Values {
				attrs = append(attrs, kv.Key, kv.Value)
			}
			t.log.Info("diag_"+diag.Name, attrs...)
			continue
		}
		t.log.Info("packet", "topic", env.Data.Topic(), "from", from, "time", env.Time, "data", env.Data)
	}
}
