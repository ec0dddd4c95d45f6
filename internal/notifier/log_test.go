package notifier

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/jobscout/jobscout/internal/model"
)

func TestLogNotify_WritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	n := NewLogNotifier(logger)
	offers := []model.JobOffer{
		sampleOffer("acme", "Go Engineer"),
		sampleOffer("nimbus", "Platform Engineer"),
	}
	if err := n.Notify(offers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"acme", "Go Engineer", "nimbus", "Platform Engineer"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "new offer"); got != 2 {
		t.Errorf("expected 2 log lines, got %d", got)
	}
}
