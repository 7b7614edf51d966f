package expense

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Ledger holds the expense records of every thread for the process lifetime.
// Each thread has its own lock, so writers to different threads never wait on
// each other.
type Ledger struct {
	mu      sync.RWMutex // protects threads
	threads map[int64]*thread
}

type thread struct {
	mu      sync.RWMutex
	records []Record
}

// Summary is a snapshot of one thread's ledger
type Summary struct {
	ThreadID int64           `json:"thread_id"`
	Total    decimal.Decimal `json:"total"`
	Records  []Record        `json:"records"`
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{threads: make(map[int64]*thread)}
}

func (l *Ledger) thread(id int64) *thread {
	l.mu.RLock()
	t, ok := l.threads[id]
	l.mu.RUnlock()
	if ok {
		return t
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok = l.threads[id]; !ok {
		t = &thread{}
		l.threads[id] = t
	}
	return t
}

// Append adds a record to the end of the thread's sequence
func (l *Ledger) Append(threadID int64, record Record) {
	t := l.thread(threadID)
	t.mu.Lock()
	t.records = append(t.records, record)
	t.mu.Unlock()
}

// Records returns a copy of the thread's records in insertion order
func (l *Ledger) Records(threadID int64) []Record {
	l.mu.RLock()
	t, ok := l.threads[threadID]
	l.mu.RUnlock()
	if !ok {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.records) == 0 {
		return nil
	}
	records := make([]Record, len(t.records))
	copy(records, t.records)
	return records
}

// Report sums the thread's records. ok is false when the thread has none,
// which callers should show differently from a total of zero.
func (l *Ledger) Report(threadID int64) (summary Summary, ok bool) {
	records := l.Records(threadID)
	if len(records) == 0 {
		return Summary{ThreadID: threadID}, false
	}

	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return Summary{ThreadID: threadID, Total: total, Records: records}, true
}

// String renders the report as a chat message
func (r Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Отчет по проекту (тема #%d)\n", r.ThreadID)
	fmt.Fprintf(&b, "Всего потрачено: %s ₽\n", FormatMoney(r.Total))
	if len(r.Records) > 0 {
		b.WriteString("\n")
	}
	for _, rec := range r.Records {
		fmt.Fprintf(&b, "%s ₽ — %s\n", FormatMoney(rec.Amount), rec.Description)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// FormatMoney renders an amount with two decimals and comma thousand separators
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
