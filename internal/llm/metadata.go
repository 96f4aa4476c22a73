package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docindex/constants"
)

// DefaultTimeout bounds one oracle call; large documents need the headroom.
const DefaultTimeout = 120 * time.Second

var errNoJSONObject = errors.New("no JSON object in oracle response")

type MetadataClient struct {
	gen     Generator
	timeout time.Duration
	logger  *slog.Logger
}

var _ MetadataExtractor = (*MetadataClient)(nil)

func NewMetadataClient(gen Generator, timeout time.Duration, logger *slog.Logger) *MetadataClient {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MetadataClient{gen: gen, timeout: timeout, logger: logger}
}

// ExtractMetadata asks the oracle for title, summary, keywords and date.
// It never returns an error: failures resolve to fixed fallback fields and
// the reason is reported in OracleResult.Outcome.
func (c *MetadataClient) ExtractMetadata(ctx context.Context, text string) OracleResult {
	rid := uuid.New().String()
	start := time.Now()

	sent := TruncateText(text, MaxTextLength)
	res := OracleResult{Model: c.gen.Model(), TextSent: len([]rune(sent))}
	c.logger.Info("llm.metadata.start",
		"req_id", rid,
		"model", res.Model,
		"text_len", len(text),
		"truncated", res.TextSent < len([]rune(text)),
	)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.gen.Generate(callCtx, BuildMetadataPrompt(sent))
	if err != nil {
		c.logger.Error("llm.metadata.generate_error",
			"req_id", rid, "error", err,
			"timeout", errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		res.Fields, res.Outcome, res.Err = AIErrorFields(), constants.OracleAIError, err
		return res
	}

	obj, tier, ok := ParseResponse(raw)
	if !ok {
		c.logger.Warn("llm.metadata.parse_error",
			"req_id", rid, "raw_preview", preview(raw, 200),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		res.Fields, res.Outcome, res.Err = ParseErrorFields(), constants.OracleParseError, errNoJSONObject
		return res
	}
	res.Tier = tier

	// Strict first. A miss goes through Coerce and the coerced fields are
	// checked again, the way the answer will be stored.
	fields, adjusted := Coerce(obj)
	if vErr := validateMetadataObject(obj); vErr == nil {
		res.Schema = SchemaStrict
	} else {
		c.logger.Warn("llm.metadata.schema_mismatch", "req_id", rid, "tier", tier, "error", vErr)
		res.Schema = SchemaLenient
		if rErr := validateFields(fields); rErr != nil {
			res.Schema = SchemaMismatch
			c.logger.Warn("llm.metadata.lenient_still_invalid", "req_id", rid, "error", rErr)
		}
	}
	if len(adjusted) > 0 {
		c.logger.Warn("llm.metadata.lenient_coerce_applied", "req_id", rid, "adjusted", adjusted)
	}

	res.Fields, res.Outcome = fields, constants.OracleOK
	c.logger.Info("llm.metadata.ok",
		"req_id", rid,
		"tier", tier,
		"schema", res.Schema,
		"title", fields.Title,
		"date", fields.Date,
		"keywords", len(fields.Keywords),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
