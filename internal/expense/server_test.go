package expense

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ravindran-dev/SmartSpend/internal/categorize"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

func multipartBody(field, filename string, data []byte) (*bytes.Buffer, string) {
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	part, err := writer.CreateFormFile(field, filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return &b, writer.FormDataContentType()
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return string(body)
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		scanner     *mockScanner
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		service := NewServiceWithDeps(db, scanner, newMockStorage(), categorize.NewClassifier(nil), &sequentialIDs{}, fixedTime{now: testNow})
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(`.*`), server.ServeHTTP)
		}
	}

	BeforeEach(func() {
		db = newMockDB()
		scanner = newMockScanner()
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
			ghttpServer = nil
		}
	})

	Describe("POST /api/process-bill", func() {
		When("an image is uploaded", func() {
			It("returns the extracted bill", func() {
				body, contentType := multipartBody("file", "test.jpg", []byte("fake image data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/process-bill", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var result processBillResponse
				Expect(json.Unmarshal([]byte(readBody(resp)), &result)).To(Succeed())
				Expect(result.Success).To(BeTrue())
				Expect(result.Vendor).To(Equal("ANGARA RESTAURANT"))
				Expect(result.Amount.Equal(decimal.NewFromInt(540))).To(BeTrue())
				Expect(result.Category).To(Equal(categorize.FoodDining))
				Expect(result.FileType).To(Equal("image"))
				Expect(result.Filename).To(Equal("test.jpg"))
				Expect(result.FileID).To(Equal("id-1"))
			})

			It("serves the stored file afterwards", func() {
				body, contentType := multipartBody("image", "test.jpg", []byte("fake image data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/process-bill", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				readBody(resp)

				resp, err = http.Get(ghttpServer.URL() + "/api/bills/id-1/file")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))
				Expect(readBody(resp)).To(Equal("fake image data"))
			})
		})

		When("a PDF is uploaded under the pdf field", func() {
			It("reports the pdf file type", func() {
				body, contentType := multipartBody("pdf", "bill.pdf", []byte("%PDF-1.4"))
				resp, err := http.Post(ghttpServer.URL()+"/api/process-bill", contentType, body)
				Expect(err).NotTo(HaveOccurred())

				var result processBillResponse
				Expect(json.Unmarshal([]byte(readBody(resp)), &result)).To(Succeed())
				Expect(result.FileType).To(Equal("pdf"))
				Expect(result.Confidence).To(Equal(0.7))
			})
		})

		When("no file is provided", func() {
			It("returns Bad Request", func() {
				body, contentType := multipartBody("other", "x.jpg", []byte("x"))
				resp, err := http.Post(ghttpServer.URL()+"/api/process-bill", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)).To(ContainSubstring("No image or PDF file provided"))
			})
		})

		When("a JSON body carries no image data", func() {
			It("returns Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/process-bill", "application/json", strings.NewReader("{}"))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)).To(ContainSubstring("No image or PDF file provided"))
			})
		})

		When("a JSON body carries a base64 data URL", func() {
			It("scans the decoded image", func() {
				payload := `{"image_data": "data:image/png;base64,` + base64.StdEncoding.EncodeToString([]byte("fake png")) + `"}`
				resp, err := http.Post(ghttpServer.URL()+"/api/process-bill", "application/json", strings.NewReader(payload))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var result processBillResponse
				Expect(json.Unmarshal([]byte(readBody(resp)), &result)).To(Succeed())
				Expect(result.Vendor).To(Equal("ANGARA RESTAURANT"))
				Expect(result.FileType).To(Equal("image"))
				Expect(result.Filename).To(Equal("uploaded_image"))
				Expect(scanner.calls).To(Equal(1))

				resp, err = http.Get(ghttpServer.URL() + "/api/bills/id-1/file")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
				Expect(readBody(resp)).To(Equal("fake png"))
			})
		})

		When("a JSON body carries invalid base64", func() {
			It("returns Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/process-bill", "application/json",
					strings.NewReader(`{"image_data": "not base64!"}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)).To(ContainSubstring("Invalid image data"))
			})
		})

		When("a text file is uploaded", func() {
			It("processes it without the scanner", func() {
				body, contentType := multipartBody("file", "bill.txt", []byte("CORNER CAFE\nTotal: $45.99"))
				resp, err := http.Post(ghttpServer.URL()+"/api/process-bill", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var result processBillResponse
				Expect(json.Unmarshal([]byte(readBody(resp)), &result)).To(Succeed())
				Expect(result.FileType).To(Equal("text"))
				Expect(result.Amount.Equal(decimal.RequireFromString("45.99"))).To(BeTrue())
				Expect(scanner.calls).To(Equal(0))
			})
		})

		When("the scanner fails", func() {
			BeforeEach(func() {
				scanner.err = errors.New("tesseract missing")
			})

			It("returns Internal Server Error with the message", func() {
				body, contentType := multipartBody("file", "test.jpg", []byte("fake"))
				resp, err := http.Post(ghttpServer.URL()+"/api/process-bill", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))

				var result errorResponse
				Expect(json.Unmarshal([]byte(readBody(resp)), &result)).To(Succeed())
				Expect(result.Success).To(BeFalse())
				Expect(result.Error).To(ContainSubstring("tesseract missing"))
			})
		})
	})

	Describe("GET /api/bills/{id}/file", func() {
		It("returns Not Found for unknown bills", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/bills/missing/file")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			readBody(resp)
		})
	})

	Describe("POST /api/categorize-expense", func() {
		It("returns the category", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/categorize-expense", "application/json",
				strings.NewReader(`{"description": "Uber ride to airport", "amount": 450}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result map[string]any
			Expect(json.Unmarshal([]byte(readBody(resp)), &result)).To(Succeed())
			Expect(result).To(HaveKeyWithValue("category", categorize.Transportation))
			Expect(result).To(HaveKeyWithValue("success", true))
		})

		It("rejects malformed JSON", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/categorize-expense", "application/json", strings.NewReader(`{`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			readBody(resp)
		})
	})

	Describe("/api/expenses", func() {
		post := func(body string) *http.Response {
			resp, err := http.Post(ghttpServer.URL()+"/api/expenses", "application/json", strings.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("adds an expense", func() {
			resp := post(`{"vendor": "Uber", "amount": 450, "category": "Transportation", "date": "2025-06-01"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var result struct {
				Success bool    `json:"success"`
				Expense Expense `json:"expense"`
			}
			Expect(json.Unmarshal([]byte(readBody(resp)), &result)).To(Succeed())
			Expect(result.Success).To(BeTrue())
			Expect(result.Expense.ID).To(Equal("id-1"))
			Expect(result.Expense.Currency).To(Equal("INR"))
			Expect(db.expenses).To(HaveKey("id-1"))
		})

		It("returns validation messages as Bad Request", func() {
			resp := post(`{"vendor": "Uber", "amount": 0, "category": "Transportation", "date": "2025-06-01"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(readBody(resp)).To(ContainSubstring("Amount must be greater than 0"))
		})

		It("rejects malformed JSON", func() {
			resp := post(`not json`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(readBody(resp)).To(ContainSubstring("Invalid request body"))
		})

		When("expenses exist", func() {
			BeforeEach(func() {
				db.expenses["a"] = &Expense{ID: "a", Vendor: "Cafe", Amount: decimal.NewFromInt(200), Currency: "INR", Category: categorize.FoodDining, Date: "2025-06-02"}
				db.expenses["b"] = &Expense{ID: "b", Vendor: "Uber", Amount: decimal.NewFromInt(450), Currency: "INR", Category: categorize.Transportation, Date: "2025-06-05"}
			})

			It("lists them with filters", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses?category=Food+%26+Dining")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var result struct {
					Success  bool       `json:"success"`
					Expenses []*Expense `json:"expenses"`
					Total    int        `json:"total"`
				}
				Expect(json.Unmarshal([]byte(readBody(resp)), &result)).To(Succeed())
				Expect(result.Total).To(Equal(1))
				Expect(result.Expenses[0].ID).To(Equal("a"))
			})

			It("deletes one", func() {
				req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/expenses/a", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(readBody(resp)).To(ContainSubstring("Expense deleted successfully"))
				Expect(db.expenses).NotTo(HaveKey("a"))
			})

			It("clears all of them", func() {
				req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/expenses/clear", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				readBody(resp)
				Expect(db.expenses).To(BeEmpty())
			})

			It("exports them as CSV", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/export")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/csv"))
				body := readBody(resp)
				Expect(body).To(HavePrefix("id,date,vendor"))
				Expect(body).To(ContainSubstring("b,2025-06-05,Uber,Transportation,450.00,INR,,"))
			})

			It("summarises them", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/analytics")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var result struct {
					Success bool `json:"success"`
					Analytics
				}
				Expect(json.Unmarshal([]byte(readBody(resp)), &result)).To(Succeed())
				Expect(result.Success).To(BeTrue())
				Expect(result.ExpenseCount).To(Equal(2))
				Expect(result.TotalExpenses.Equal(decimal.NewFromInt(650))).To(BeTrue())
				Expect(result.CategoryData).To(HaveLen(2))
			})
		})

		It("returns Not Found deleting an unknown expense", func() {
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/expenses/missing", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			readBody(resp)
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("db closed")
			})

			It("returns Internal Server Error", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				readBody(resp)
			})
		})
	})

	Describe("GET /api/health", func() {
		It("reports status", func() {
			db.expenses["a"] = &Expense{ID: "a"}
			resp, err := http.Get(ghttpServer.URL() + "/api/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var health Health
			Expect(json.Unmarshal([]byte(readBody(resp)), &health)).To(Succeed())
			Expect(health).To(Equal(Health{Status: "healthy", ModelLoaded: false, ExpensesCount: 1}))
		})
	})

	Describe("GET /metrics", func() {
		It("counts processed bills", func() {
			body, contentType := multipartBody("file", "test.jpg", []byte("fake"))
			resp, err := http.Post(ghttpServer.URL()+"/api/process-bill", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			readBody(resp)

			resp, err = http.Get(ghttpServer.URL() + "/metrics")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(readBody(resp)).To(ContainSubstring(`smartspend_bills_processed_total{outcome="extracted",source="image"} 1`))
		})
	})

	Describe("CORS", func() {
		It("answers preflight requests", func() {
			req, err := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/api/expenses", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			readBody(resp)
		})

		It("sets the allow origin header on normal requests", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/health", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Origin", "http://localhost:3000")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			readBody(resp)
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("rejects requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("SmartSpend"))
			readBody(resp)
		})

		It("rejects wrong credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/expenses", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "wrong")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			readBody(resp)
		})

		It("accepts valid credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/expenses", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "secret")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			readBody(resp)
		})

		It("leaves the health probe open", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			readBody(resp)
		})
	})
})
