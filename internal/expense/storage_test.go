package expense

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			filename  string
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "thread-3/doc_check.pdf"
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(filename, []byte("%PDF-1.4"))
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the relative path", func() {
				Expect(savedPath).To(Equal(filename))
			})

			It("creates the thread directory", func() {
				Expect(filepath.Join(tmpDir, "thread-3", "doc_check.pdf")).To(BeAnExistingFile())
			})
		})

		When("the path escapes the storage root", func() {
			BeforeEach(func() {
				filename = "../outside.pdf"
			})

			It("returns an error", func() {
				Expect(err).To(MatchError(`invalid storage path "../outside.pdf"`))
			})
		})
	})

	Describe("Get", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("a.pdf", []byte("content"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns its data", func() {
				data, err := storage.Get("a.pdf")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("content"))
			})
		})

		When("the file does not exist", func() {
			It("returns an error", func() {
				_, err := storage.Get("missing.pdf")
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Delete", func() {
		It("removes the file", func() {
			_, err := storage.Save("a.pdf", []byte("content"))
			Expect(err).NotTo(HaveOccurred())
			Expect(storage.Delete("a.pdf")).To(Succeed())
			Expect(filepath.Join(tmpDir, "a.pdf")).NotTo(BeAnExistingFile())
		})

		It("fails for missing files", func() {
			Expect(storage.Delete("missing.pdf")).NotTo(Succeed())
		})
	})
})

var _ = DescribeTable("sanitizeFilename",
	func(input, expected string) {
		Expect(sanitizeFilename(input)).To(Equal(expected))
	},
	Entry("plain", "check.pdf", "check.pdf"),
	Entry("cyrillic is kept", "Счёт 15.PDF", "Счёт 15.pdf"),
	Entry("symbols are dropped", "Платёжка №42 (копия).pdf", "Платёжка 42 копия.pdf"),
	Entry("directories are dropped", "../../etc/passwd.pdf", "passwd.pdf"),
	Entry("nothing left", "№№№.pdf", "document.pdf"),
	Entry("long names are truncated", "Оплата по договору поставки оборудования для мероприятия номер 15.pdf",
		"Оплата по договору поставки оборудования для мероп.pdf"),
)
