package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/doc-ledger/internal/scanning"
)

// DefaultThread is the ledger key for conversations without sub-threads
const DefaultThread int64 = 0

// Record is a single expense in a thread's ledger. Records are values and are
// never changed after they are appended.
type Record struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	RecordedAt  time.Time       `json:"recorded_at"` // ingestion time, not a date read from the document
}

// Document is the journal entry written for every processed upload
type Document struct {
	ID           string                `json:"id"`
	ThreadID     int64                 `json:"thread_id"`
	OriginalName string                `json:"original_name"`
	Filename     string                `json:"filename"` // path relative to storage
	Type         scanning.DocumentType `json:"type"`
	Amount       decimal.NullDecimal   `json:"amount"` // null when no amount was recognized
	Description  string                `json:"description"`
	Filed        bool                  `json:"filed"` // whether a ledger record was appended
	ProcessedAt  time.Time             `json:"processed_at"`
}
