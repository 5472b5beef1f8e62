package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, height/2, color.Black)
	}
	return img
}

var _ = Describe("New", func() {
	It("defaults to Tesseract", func() {
		scanner, err := New(Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(scanner.images).To(BeAssignableToTypeOf(&Tesseract{}))
	})

	It("builds an Ollama scanner", func() {
		scanner, err := New(Config{Kind: "ollama", OllamaURL: "http://localhost:11434"})
		Expect(err).NotTo(HaveOccurred())
		Expect(scanner.images).To(BeAssignableToTypeOf(&Ollama{}))
	})

	It("requires a Gemini API key", func() {
		_, err := New(Config{Kind: "gemini"})
		Expect(err).To(MatchError(ContainSubstring("api key is required")))
	})

	It("rejects unknown scanners", func() {
		_, err := New(Config{Kind: "abbyy"})
		Expect(err).To(MatchError(ContainSubstring("unknown scanner")))
	})
})

var _ = Describe("ContentTypeFromFilename", func() {
	DescribeTable("maps extensions",
		func(name, expected string) {
			Expect(ContentTypeFromFilename(name)).To(Equal(expected))
		},
		Entry("pdf", "bill.PDF", "application/pdf"),
		Entry("jpeg", "photo.jpeg", "image/jpeg"),
		Entry("heic", "IMG_0001.HEIC", "image/heic"),
		Entry("unknown", "notes.docx", "application/octet-stream"),
		Entry("no extension", "scan", "application/octet-stream"),
		Entry("text", "bill.TXT", "text/plain"),
	)
})

var _ = Describe("IsText", func() {
	It("accepts plain text with or without parameters", func() {
		Expect(IsText("text/plain")).To(BeTrue())
		Expect(IsText("Text/Plain; charset=utf-8")).To(BeTrue())
	})

	It("rejects other types", func() {
		Expect(IsText("image/png")).To(BeFalse())
		Expect(IsText("application/pdf")).To(BeFalse())
		Expect(IsText("")).To(BeFalse())
	})
})

var _ = Describe("image conversion", func() {
	It("upscales short images before OCR", func() {
		out := preprocessForOCR(testImage(100, 50))
		Expect(out.Bounds().Dy()).To(Equal(ocrTargetHeight))
		Expect(out.Bounds().Dx()).To(Equal(2400))
	})

	It("leaves tall images at their size", func() {
		out := preprocessForOCR(testImage(600, 1000))
		Expect(out.Bounds().Dy()).To(Equal(1000))
	})

	It("passes PNG uploads through unchanged", func() {
		var buf bytes.Buffer
		Expect(png.Encode(&buf, testImage(10, 10))).To(Succeed())

		out, err := prepareImageData(buf.Bytes(), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(buf.Bytes()))
	})

	It("converts JPEG uploads to PNG", func() {
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, testImage(10, 10), nil)).To(Succeed())

		out, err := prepareImageData(buf.Bytes(), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
		Expect(out[:4]).To(Equal([]byte("\x89PNG")))
	})

	It("rejects data that is not an image", func() {
		_, err := decodeImage([]byte("plain text"), "image/jpeg")
		Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
	})

	It("recognises HEIC by brand and by MIME type", func() {
		header := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		Expect(isHEICFormat(header)).To(BeTrue())
		Expect(isHEICFormat([]byte("short"))).To(BeFalse())
		Expect(isHEICMimeType(" image/HEIF ")).To(BeTrue())
		Expect(isHEICMimeType("image/png")).To(BeFalse())
	})
})
