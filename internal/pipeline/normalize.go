package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/Bruno-te/Code-Crafters/internal/config"
	"github.com/Bruno-te/Code-Crafters/internal/domain"
)

// NormalizeVersion tags rows with the normalization rules they went
// through.
const NormalizeVersion = "1.0"

var (
	amountStripRe = regexp.MustCompile(`[^\d.\-]`)
	phoneStripRe  = regexp.MustCompile(`[^\d+]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)

	// Manual date shapes tried after the flexible parser and the
	// configured layouts: YYYY-MM-DD, DD/MM/YYYY, DD-MM-YYYY.
	dateShapes = []struct {
		re        *regexp.Regexp
		yearFirst bool
	}{
		{regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`), true},
		{regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})`), false},
		{regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})`), false},
	}
)

// statusSynonyms maps raw status variants onto the canonical vocabulary.
// Unknown values pass through unchanged.
var statusSynonyms = map[string]string{
	"success":     domain.StatusSuccess,
	"completed":   domain.StatusSuccess,
	"done":        domain.StatusSuccess,
	"ok":          domain.StatusSuccess,
	"pending":     domain.StatusPending,
	"processing":  domain.StatusPending,
	"in_progress": domain.StatusPending,
	"failed":      domain.StatusFailed,
	"error":       domain.StatusFailed,
	"declined":    domain.StatusFailed,
	"rejected":    domain.StatusFailed,
	"cancelled":   domain.StatusCancelled,
	"canceled":    domain.StatusCancelled,
}

// typeSynonyms maps raw transaction-type variants onto the category
// vocabulary used downstream by the classifier.
var typeSynonyms = map[string]string{
	"payment":    string(domain.CategoryPayment),
	"pay":        string(domain.CategoryPayment),
	"bill":       string(domain.CategoryPayment),
	"utility":    string(domain.CategoryPayment),
	"transfer":   string(domain.CategoryTransfer),
	"send":       string(domain.CategoryTransfer),
	"money":      string(domain.CategoryTransfer),
	"withdrawal": string(domain.CategoryWithdrawal),
	"withdraw":   string(domain.CategoryWithdrawal),
	"cashout":    string(domain.CategoryWithdrawal),
	"deposit":    string(domain.CategoryDeposit),
	"topup":      string(domain.CategoryDeposit),
	"recharge":   string(domain.CategoryDeposit),
}

// Normalizer converts RawRecords into their canonical form.
type Normalizer struct {
	cfg *config.Config
	log zerolog.Logger
	now func() time.Time
}

// NewNormalizer creates a normalizer for the configured country and date
// layouts.
func NewNormalizer(cfg *config.Config, log zerolog.Logger) *Normalizer {
	return &Normalizer{cfg: cfg, log: log, now: time.Now}
}

// Normalize produces the canonical record, or an error when the record
// fails the required-fields check afterwards. No partial record is ever
// returned alongside an error.
func (n *Normalizer) Normalize(raw domain.RawRecord) (*domain.NormalizedRecord, error) {
	rec := &domain.NormalizedRecord{
		ID:               raw.ID,
		Date:             n.normalizeDate(raw.Date),
		Amount:           normalizeAmount(raw.Amount),
		Fee:              normalizeAmount(raw.Fee),
		Balance:          normalizeAmount(raw.Balance),
		Phone:            n.normalizePhone(raw.Phone),
		Message:          normalizeText(raw.Message),
		Sender:           normalizeText(raw.Sender),
		Recipient:        normalizeText(raw.Recipient),
		Status:           normalizeEnum(raw.Status, statusSynonyms),
		Type:             normalizeEnum(raw.Type, typeSynonyms),
		RawData:          raw.RawData,
		NormalizedAt:     n.now(),
		NormalizeVersion: NormalizeVersion,
	}

	if rec.Date == nil || rec.Amount == nil {
		return nil, fmt.Errorf("record %s failed validation after normalization: date and amount are required", raw.ID)
	}
	return rec, nil
}

// normalizeDate tries, in order: Unix timestamps, the flexible free-text
// parser, the configured explicit layouts, and the three manual shapes.
// The first success wins; nil means every strategy failed.
func (n *Normalizer) normalizeDate(value *string) *time.Time {
	if value == nil {
		return nil
	}
	raw := strings.TrimSpace(*value)
	if raw == "" {
		return nil
	}

	// Epoch seconds are 10 digits, milliseconds 13. Other all-digit
	// widths (packed dates like 20240115143000) fall through to the
	// shape parsers.
	if isDigits(raw) && (len(raw) == 10 || len(raw) == 13) {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if len(raw) == 13 {
				ts /= 1000
			}
			t := time.Unix(ts, 0)
			return &t
		}
	}

	if t, err := dateparse.ParseLocal(raw); err == nil {
		return &t
	}

	for _, layout := range n.cfg.DateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}

	for _, shape := range dateShapes {
		m := shape.re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		var year, month, day int
		if shape.yearFirst {
			year, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			day, _ = strconv.Atoi(m[3])
		} else {
			day, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			year, _ = strconv.Atoi(m[3])
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
		return &t
	}

	n.log.Warn().Str("value", raw).Msg("could not parse date")
	return nil
}

// normalizeAmount strips currency symbols, separators and whitespace,
// keeping digits, '.' and '-'. A leading '-' negates; anything left
// unparseable yields nil.
func normalizeAmount(value *string) *float64 {
	if value == nil {
		return nil
	}
	cleaned := amountStripRe.ReplaceAllString(strings.TrimSpace(*value), "")
	if cleaned == "" {
		return nil
	}

	if strings.HasPrefix(cleaned, "-") {
		f, err := strconv.ParseFloat(cleaned[1:], 64)
		if err != nil {
			return nil
		}
		f = -f
		return &f
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}

// normalizePhone reduces the input to digits plus a leading '+' and then
// applies the recognition chain for the configured country. Unrecognized
// shapes yield nil with a warning; the function never guesses.
func (n *Normalizer) normalizePhone(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := phoneStripRe.ReplaceAllString(strings.TrimSpace(*value), "")
	if cleaned == "" {
		return nil
	}

	dialCode := n.cfg.Country.DialCode
	dialDigits := n.cfg.DialDigits()

	var normalized string
	switch {
	case strings.HasPrefix(cleaned, dialCode):
		normalized = cleaned
	case strings.HasPrefix(cleaned, dialDigits):
		normalized = "+" + cleaned
	case strings.HasPrefix(cleaned, "0"):
		normalized = dialCode + cleaned[1:]
	case len(cleaned) == n.cfg.Country.SubscriberDigits && !strings.ContainsRune(cleaned, '+'):
		normalized = dialCode + cleaned
	default:
		n.log.Warn().Str("value", *value).Msg("unrecognized phone format")
		return nil
	}
	return &normalized
}

// normalizeText collapses whitespace runs, applies NFKC, strips control
// characters and trims. An empty result becomes nil.
func normalizeText(value *string) *string {
	if value == nil {
		return nil
	}

	text := whitespaceRe.ReplaceAllString(strings.TrimSpace(*value), " ")
	text = norm.NFKC.String(text)
	text = strings.Map(func(r rune) rune {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return -1
		}
		return r
	}, text)
	text = strings.TrimSpace(text)

	if text == "" {
		return nil
	}
	return &text
}

// isDigits reports whether s is non-empty and made of ASCII digits only.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// normalizeEnum lower-cases, trims and maps through the synonym table.
// Absent values become "unknown"; unmapped values pass through unchanged.
func normalizeEnum(value *string, synonyms map[string]string) string {
	if value == nil {
		return domain.StatusUnknown
	}
	lowered := strings.ToLower(strings.TrimSpace(*value))
	if lowered == "" {
		return domain.StatusUnknown
	}
	if mapped, ok := synonyms[lowered]; ok {
		return mapped
	}
	return lowered
}
