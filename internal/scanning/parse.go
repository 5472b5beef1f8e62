package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ravindran-dev/SmartSpend/internal/bill"
)

// transcribePrompt is the shared prompt used by all LLM providers. The models
// only transcribe; field extraction happens in the bill pipeline.
const transcribePrompt = `You are reading a photographed or scanned bill, receipt or invoice. Transcribe every line of printed text exactly as it appears, from top to bottom, one printed line per output line.

Keep numbers, currency symbols, dates and punctuation unchanged. Do not summarise, translate or correct anything.

Return ONLY valid JSON in this exact format:
{
  "text": "FIRST LINE\nSECOND LINE"
}

Important:
- Use \n between lines inside the JSON string
- If the image contains no readable text, return {"text": ""}
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

type transcript struct {
	Text string `json:"text"`
}

// parseTranscript parses the JSON response from a vision model. A blank
// transcript becomes the manual entry sentinel.
func parseTranscript(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Remove opening markdown code blocks
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var data transcript
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return "", fmt.Errorf("unmarshaling json: %w", err)
	}

	if strings.TrimSpace(data.Text) == "" {
		return bill.ManualEntrySentinel, nil
	}
	return data.Text, nil
}
