package expense

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/shopspring/decimal"
)

func uploadRequest(url, filename string, content []byte) *http.Request {
	GinkgoHelper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())

	req, err := http.NewRequest(http.MethodPost, url, body)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func expenseRequest(url, text string) *http.Request {
	GinkgoHelper()
	payload, err := json.Marshal(map[string]string{"text": text})
	Expect(err).NotTo(HaveOccurred())
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(resp *http.Response, v interface{}) {
	GinkgoHelper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, v)).To(Succeed(), string(body))
}

var _ = Describe("Server", func() {
	var (
		ledger      *Ledger
		extractor   *mockExtractor
		journal     *mockJournal
		storage     *mockStorage
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		service = NewServiceWithDeps(ledger, extractor, journal, storage,
			&mockIDGenerator{id: "doc-1"},
			&mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)})
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		ledger = NewLedger()
		extractor = &mockExtractor{text: paymentOrderText}
		journal = newMockJournal()
		storage = newMockStorage()
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleUploadDocument", func() {
		When("the document is filed", func() {
			It("should return status Created with the record", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/api/threads/12/documents", "order.pdf", []byte("%PDF")))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var outcome Outcome
				decodeBody(resp, &outcome)
				Expect(outcome.Record).NotTo(BeNil())
				Expect(outcome.Record.Amount.Equal(decimal.NewFromInt(15000))).To(BeTrue())
				Expect(outcome.Document.ThreadID).To(Equal(int64(12)))
				Expect(ledger.Records(12)).To(HaveLen(1))
			})
		})

		When("the document is not filed", func() {
			BeforeEach(func() {
				extractor.text = invoiceText
				setupServer()
			})

			It("should return status OK with the findings", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/api/threads/default/documents", "invoice.pdf", []byte("%PDF")))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var body map[string]interface{}
				decodeBody(resp, &body)
				Expect(body).NotTo(HaveKey("record"))
				Expect(body["document"]).To(HaveKeyWithValue("type", "invoice"))
				Expect(body["document"]).To(HaveKeyWithValue("filed", false))
			})
		})

		When("the file is not a PDF", func() {
			It("should return status Unprocessable Entity", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/api/threads/1/documents", "photo.jpg", []byte("jpeg")))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

				var body map[string]string
				decodeBody(resp, &body)
				Expect(body["error"]).To(ContainSubstring("document unreadable"))
			})
		})

		When("no file is attached", func() {
			It("should return status Bad Request", func() {
				req := uploadRequest(ghttpServer.URL()+"/api/threads/1/documents", "x.pdf", nil)
				req.Body = io.NopCloser(bytes.NewReader(nil))
				req.ContentLength = 0
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the thread id is invalid", func() {
			It("should return status Bad Request", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/api/threads/abc/documents", "a.pdf", []byte("%PDF")))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleAddExpense", func() {
		When("the entry is valid", func() {
			It("should return status Created with the record", func() {
				resp, err := http.DefaultClient.Do(expenseRequest(ghttpServer.URL()+"/api/threads/3/expenses", "-5т аренда"))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var record Record
				decodeBody(resp, &record)
				Expect(record.Amount.Equal(decimal.NewFromInt(5000))).To(BeTrue())
				Expect(record.Description).To(Equal("аренда"))
				Expect(ledger.Records(3)).To(HaveLen(1))
			})
		})

		When("the amount is malformed", func() {
			It("should return status Bad Request with the reason", func() {
				resp, err := http.DefaultClient.Do(expenseRequest(ghttpServer.URL()+"/api/threads/3/expenses", "-abc test"))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var body map[string]string
				decodeBody(resp, &body)
				Expect(body["error"]).To(HavePrefix(`parsing amount "abc"`))
				Expect(ledger.Records(3)).To(BeEmpty())
			})
		})

		When("the body is not JSON", func() {
			It("should return status Bad Request", func() {
				req, err := http.NewRequest(http.MethodPost, ghttpServer.URL()+"/api/threads/3/expenses", bytes.NewBufferString("-100"))
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleReport", func() {
		When("the thread is empty", func() {
			It("should say there is nothing to report", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/threads/8/report")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var body map[string]interface{}
				decodeBody(resp, &body)
				Expect(body).To(HaveKeyWithValue("empty", true))
				Expect(body).To(HaveKeyWithValue("text", "Нет расходов в этой теме."))
			})
		})

		When("the thread has records", func() {
			BeforeEach(func() {
				ledger.Append(8, rec("1200", "аренда техники"))
				ledger.Append(8, rec("300", "такси"))
			})

			It("should return the total and the records", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/threads/8/report")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var body struct {
					ThreadID int64           `json:"thread_id"`
					Total    decimal.Decimal `json:"total"`
					Records  []Record        `json:"records"`
					Text     string          `json:"text"`
				}
				decodeBody(resp, &body)
				Expect(body.ThreadID).To(Equal(int64(8)))
				Expect(body.Total.Equal(decimal.NewFromInt(1500))).To(BeTrue())
				Expect(body.Records).To(HaveLen(2))
				Expect(body.Text).To(ContainSubstring("Всего потрачено: 1,500.00 ₽"))
			})
		})
	})

	Describe("handleExport", func() {
		When("the thread is empty", func() {
			It("should return status No Content", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/threads/4/export")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()
			})
		})

		When("the thread has records", func() {
			BeforeEach(func() {
				ledger.Append(4, rec("99.90", "кофе"))
			})

			It("should return the workbook as an attachment", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/threads/4/export")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Disposition")).To(Equal(`attachment; filename="report-thread-4.xlsx"`))

				records, err := ReadWorkbook(resp.Body, time.UTC)
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(1))
				Expect(records[0].Description).To(Equal("кофе"))
			})
		})
	})

	Describe("handleGetDocument", func() {
		When("the document exists", func() {
			BeforeEach(func() {
				_, err := service.ProcessDocument(1, "a.pdf", []byte("%PDF-1.4 a"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the journal entry", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/doc-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var doc Document
				decodeBody(resp, &doc)
				Expect(doc.ID).To(Equal("doc-1"))
				Expect(doc.OriginalName).To(Equal("a.pdf"))
			})
		})

		When("the document does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/missing")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetDocumentFile", func() {
		BeforeEach(func() {
			_, err := service.ProcessDocument(1, "a.pdf", []byte("%PDF-1.4 a"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the stored PDF", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/documents/doc-1/file")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("%PDF-1.4 a"))
		})

		When("the document is unknown", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/missing/file")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})

		When("the stored file is gone", func() {
			BeforeEach(func() {
				storage.files = map[string][]byte{}
			})

			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/doc-1/file")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})

		When("storage fails", func() {
			BeforeEach(func() {
				storage.getErr = errors.New("disk on fire")
			})

			It("should return status Internal Server Error", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/doc-1/file")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})

		When("the journal fails", func() {
			BeforeEach(func() {
				journal.getErr = errors.New("bolt closed")
			})

			It("should return status Internal Server Error", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/doc-1/file")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("handleListDocuments", func() {
		BeforeEach(func() {
			_, err := service.ProcessDocument(6, "a.pdf", []byte("%PDF-1.4 a"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the thread's documents", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/threads/6/documents")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var docs []*Document
			decodeBody(resp, &docs)
			Expect(docs).To(HaveLen(1))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			setupServer()
		})

		When("credentials are missing", func() {
			It("should return status Unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/threads/1/report")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(resp.Header.Get("WWW-Authenticate")).To(Equal(`Basic realm="Doc Ledger"`))
				resp.Body.Close()
			})
		})

		When("credentials are correct", func() {
			It("should return status OK", func() {
				req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/threads/1/report", nil)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})
		})

		When("the health check is requested", func() {
			It("does not require credentials", func() {
				resp, err := http.Get(ghttpServer.URL() + "/healthz")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})
		})
	})
})
