package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTextLength   = 8000
	MaxSummaryWords = 150
	MinKeywords     = 5
	MaxKeywords     = 10
)

// TruncateText keeps the first max characters of text. Documents longer than
// that are summarized from their prefix only.
func TruncateText(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}

// BuildMetadataPrompt composes the extraction instruction. The output is a pure
// function of text so identical documents produce identical requests.
func BuildMetadataPrompt(text string) string {
	parts := []string{
		"You are an expert assistant for analyzing professional documents and extracting their metadata.",
		"TASK: analyze the document below and return its metadata as a strict JSON object with exactly these keys: \"title\", \"summary\", \"keywords\", \"date\".",
		"",
		"1. \"title\": the main title, most prominent heading or central topic. If there is no clear title, derive a descriptive one from the content.",
		fmt.Sprintf("2. \"summary\": a concise, professional summary of at most %d words covering the main points and purpose of the document.", MaxSummaryWords),
		fmt.Sprintf("3. \"keywords\": an array of %d to %d relevant keywords for the main concepts, topics and terminology.", MinKeywords, MaxKeywords),
		"4. \"date\": the most significant date of the document in YYYY-MM-DD format.",
		"   - Prefer the creation, publication, signature or effective date.",
		"   - If there are several dates, choose the one most representative of the content.",
		"   - If there is no explicit date, try to infer it from context.",
		"   - If it cannot be determined, use exactly: \"" + DateNotFound + "\"",
		"",
		"OUTPUT FORMAT:",
		"- Respond ONLY with the JSON object.",
		"- Do NOT wrap it in markdown code fences.",
		"- Do NOT add any text before or after the JSON.",
		"- If some information cannot be extracted, use \"Not available\" for strings and [] for arrays.",
		"",
		"DOCUMENT TO ANALYZE:",
		TruncateText(text, MaxTextLength),
	}
	return strings.Join(parts, "\n")
}

// EmptyTextStandIn is sent instead of an empty document so the oracle still
// answers with a well-formed object.
func EmptyTextStandIn(ext, filename string) string {
	return fmt.Sprintf("File of type %s with no extractable content. Name: %s", ext, filename)
}
