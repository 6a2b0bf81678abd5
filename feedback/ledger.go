// Package feedback records action outcomes and user reactions in an
// append-only JSONL ledger, and summarizes them for prompt context.
package feedback

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Result classifies a ledger entry.
const (
	ResultVerified     = "verified"
	ResultNotVerified  = "not_verified"
	ResultUserFeedback = "user_feedback"
)

// Entry is one line of the ledger.
type Entry struct {
	Timestamp    string `json:"timestamp"`
	Action       string `json:"action"`
	Result       string `json:"result"`
	UserFeedback string `json:"user_feedback,omitempty"`
	Context      string `json:"context,omitempty"`
}

// Summary buckets user reactions by sentiment.
type Summary struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Keyword sets for sentiment classification. Any other non-empty
// feedback counts as neutral.
var (
	positiveFeedback = map[string]bool{
		"yes": true, "y": true, "ok": true, "sure": true, "yep": true, "👍 yes": true,
	}
	negativeFeedback = map[string]bool{
		"no": true, "nah": true, "nope": true, "👎 no": true,
	}
)

// Classify returns +1, -1 or 0 for a raw user reaction.
func Classify(userFeedback string) int {
	normalized := strings.ToLower(strings.TrimSpace(userFeedback))
	switch {
	case positiveFeedback[normalized]:
		return 1
	case negativeFeedback[normalized]:
		return -1
	default:
		return 0
	}
}

// Ledger is an append-only JSONL file. A single mutex serializes
// writers across sessions.
type Ledger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path, now: time.Now}
}

// Record appends one entry. The timestamp is assigned at write time.
func (l *Ledger) Record(action, result, userFeedback, context string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Timestamp:    l.now().Format(time.RFC3339),
		Action:       action,
		Result:       result,
		UserFeedback: userFeedback,
		Context:      context,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal feedback entry")
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to open feedback log %s", l.path)
	}
	defer f.Close()

	if _, err := f.Write(append(raw, '\n')); err != nil {
		return errors.Wrap(err, "failed to append feedback entry")
	}
	return nil
}

// Entries reads the whole ledger. Malformed lines are skipped so one
// bad write never poisons the history.
func (l *Ledger) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to open feedback log %s", l.path)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read feedback log")
	}
	return entries, nil
}

// Summarize counts user reactions by sentiment across the whole ledger.
func (l *Ledger) Summarize() (Summary, error) {
	entries, err := l.Entries()
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{}
	for _, entry := range entries {
		if entry.UserFeedback == "" {
			continue
		}
		switch Classify(entry.UserFeedback) {
		case 1:
			summary.Positive++
		case -1:
			summary.Negative++
		default:
			summary.Neutral++
		}
	}
	return summary, nil
}
