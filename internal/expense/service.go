package expense

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/doc-ledger/internal/scanning"
)

// defaultDescription is stored for filed documents with no recognizable purpose
const defaultDescription = "расход"

// IDGenerator generates unique IDs for documents
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates time-ordered UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Outcome is the result of processing one document. Record is nil when the
// document was not filed; the findings in Document are kept either way.
type Outcome struct {
	Document *Document `json:"document"`
	Record   *Record   `json:"record,omitempty"`
}

// Export is a rendered ledger table
type Export struct {
	FileName string
	Data     []byte
}

// Service ties document scanning to the ledger
type Service struct {
	ledger      *Ledger
	extractor   scanning.Extractor
	journal     Journal
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(ledger *Ledger, extractor scanning.Extractor, journal Journal, storage Storage) *Service {
	return NewServiceWithDeps(ledger, extractor, journal, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(ledger *Ledger, extractor scanning.Extractor, journal Journal, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		ledger:      ledger,
		extractor:   extractor,
		journal:     journal,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// now is second-resolution wall-clock time, the resolution the export keeps
func (s *Service) now() time.Time {
	return s.timeSource.Now().Truncate(time.Second)
}

// ProcessDocument extracts, classifies and files a PDF. Only payment orders and
// receipts with a non-zero amount are appended to the ledger.
func (s *Service) ProcessDocument(threadID int64, filename string, data []byte) (*Outcome, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, fmt.Errorf("%w: %q is not a PDF", scanning.ErrDocumentUnreadable, filename)
	}

	id := s.idGenerator.Generate()
	now := s.now()

	savedPath, err := s.storage.Save(fmt.Sprintf("thread-%d/%s_%s", threadID, id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	text, err := s.extractor.ExtractText(data)
	if err != nil {
		slog.Error("Failed to extract document text",
			"filename", filename,
			"thread_id", threadID,
			"file_size", len(data),
			"error", err,
		)
		s.discard(savedPath)
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	docType := scanning.Classify(text)
	amount, found := scanning.ExtractAmount(text)
	description := clipDescription(scanning.ExtractDescription(text))

	doc := &Document{
		ID:           id,
		ThreadID:     threadID,
		OriginalName: filename,
		Filename:     savedPath,
		Type:         docType,
		Amount:       decimal.NullDecimal{Decimal: amount, Valid: found},
		Description:  description,
		ProcessedAt:  now,
	}

	var record *Record
	if fileable(docType) && found && !amount.IsZero() {
		if description == "" {
			description = defaultDescription
		}
		record = &Record{Amount: amount, Description: description, RecordedAt: now}
		doc.Filed = true
	}

	if err := s.journal.SaveDocument(doc); err != nil {
		s.discard(savedPath)
		return nil, fmt.Errorf("saving document to journal: %w", err)
	}

	if record != nil {
		s.ledger.Append(threadID, *record)
		slog.Info("Document filed", "id", id, "thread_id", threadID, "type", docType, "amount", amount.String())
	} else {
		slog.Info("Document not filed", "id", id, "thread_id", threadID, "type", docType, "amount_found", found)
	}

	return &Outcome{Document: doc, Record: record}, nil
}

// fileable reports whether a document type represents money already spent
func fileable(t scanning.DocumentType) bool {
	return t == scanning.Payment || t == scanning.Receipt
}

// clipDescription cuts a purpose line to what an exported cell can hold
func clipDescription(description string) string {
	if utf8.RuneCountInString(description) <= maxDescriptionLength {
		return description
	}
	slog.Warn("Clipping long description", "length", utf8.RuneCountInString(description))
	return string([]rune(description)[:maxDescriptionLength])
}

func (s *Service) discard(path string) {
	if err := s.storage.Delete(path); err != nil {
		slog.Warn("Failed to delete file", "filename", path, "error", err)
	}
}

// AddManualEntry parses chat shorthand and appends it to the thread's ledger.
// A parse failure leaves the ledger untouched.
func (s *Service) AddManualEntry(threadID int64, text string) (Record, error) {
	record, err := ParseManualEntry(strings.TrimSpace(text), s.now())
	if err != nil {
		return Record{}, err
	}
	s.ledger.Append(threadID, record)
	return record, nil
}

// Report returns the thread's total and records; ok is false for an empty thread
func (s *Service) Report(threadID int64) (Summary, bool) {
	return s.ledger.Report(threadID)
}

// Export renders the thread's ledger as a workbook; ok is false for an empty thread
func (s *Service) Export(threadID int64) (*Export, bool, error) {
	var buf bytes.Buffer
	ok, err := s.ledger.Export(threadID, &buf)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &Export{FileName: ExportFileName(threadID), Data: buf.Bytes()}, true, nil
}

// GetDocument retrieves a journal entry by ID
func (s *Service) GetDocument(id string) (*Document, error) {
	doc, err := s.journal.GetDocument(id)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the journal entries of a thread
func (s *Service) ListDocuments(threadID int64) ([]*Document, error) {
	docs, err := s.journal.ListDocuments(threadID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// GetDocumentFile retrieves the stored original of a document
func (s *Service) GetDocumentFile(id string) ([]byte, *Document, error) {
	doc, err := s.journal.GetDocument(id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting document: %w", err)
	}

	data, err := s.storage.Get(doc.Filename)
	if err != nil {
		return nil, nil, fmt.Errorf("getting document file: %w", err)
	}
	return data, doc, nil
}
