package pipeline

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Bruno-te/Code-Crafters/internal/config"
	"github.com/Bruno-te/Code-Crafters/internal/domain"
)

// fragmentSelectors are tried in order against the document; the first
// selector yielding at least one element wins. Results are never merged
// across selectors.
var fragmentSelectors = []string{"transaction", "sms", "message", "record"}

// fieldCandidates lists, per logical field, the source names tried in
// priority order when lifting values out of a fragment.
var fieldCandidates = struct {
	id, date, amount, phone, message, status, sender, recipient, typ, fee, balance []string
}{
	id:        []string{"id", "transaction_id", "ref", "reference"},
	date:      []string{"date", "timestamp", "time", "created_at"},
	amount:    []string{"amount", "value", "sum", "total"},
	phone:     []string{"phone", "mobile", "number", "msisdn"},
	message:   []string{"message", "text", "content", "body"},
	status:    []string{"status", "state", "result"},
	sender:    []string{"sender", "from", "source"},
	recipient: []string{"recipient", "to", "destination"},
	typ:       []string{"type", "transaction_type", "category"},
	fee:       []string{"fee", "charge", "cost"},
	balance:   []string{"balance", "account_balance"},
}

// fieldStrategy is one way of resolving a candidate name inside a
// fragment. Strategies run in order; the first non-empty value wins.
type fieldStrategy func(n *element, name string) (string, bool)

var fieldStrategies = []fieldStrategy{
	func(n *element, name string) (string, bool) {
		if child := n.childNamed(name); child != nil {
			if text := strings.TrimSpace(child.text); text != "" {
				return text, true
			}
		}
		return "", false
	},
	func(n *element, name string) (string, bool) {
		if val, ok := n.attrs[name]; ok {
			if text := strings.TrimSpace(val); text != "" {
				return text, true
			}
		}
		return "", false
	},
	func(n *element, name string) (string, bool) {
		if child := n.childNamedFold(name); child != nil {
			if text := strings.TrimSpace(child.text); text != "" {
				return text, true
			}
		}
		return "", false
	},
}

// lookupField resolves a logical field through the strategy list, trying
// every candidate name in priority order. nil means no candidate matched.
func lookupField(n *element, candidates []string) *string {
	for _, name := range candidates {
		for _, strategy := range fieldStrategies {
			if val, ok := strategy(n, name); ok {
				return &val
			}
		}
	}
	return nil
}

// Extractor turns one XML document into RawRecords.
type Extractor struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewExtractor creates an extractor using the configured OTP signatures.
func NewExtractor(cfg *config.Config, log zerolog.Logger) *Extractor {
	return &Extractor{cfg: cfg, log: log}
}

// Extract parses the document and lifts out one RawRecord per candidate
// fragment. OTP/verification notices are skipped silently; fragments with
// neither a date nor an amount are dropped as per-index errors. Only an
// unparseable document is fatal.
func (e *Extractor) Extract(data []byte) ([]domain.RawRecord, []domain.RecordError, error) {
	root, err := parseDocument(data)
	if err != nil {
		return nil, nil, err
	}

	fragments := selectFragments(root)
	e.log.Info().Int("fragments", len(fragments)).Msg("matched transaction fragments")

	records := make([]domain.RawRecord, 0, len(fragments))
	var errs []domain.RecordError

	for i, frag := range fragments {
		rec := e.extractFragment(frag, i)

		if rec.Message != nil && e.isOTPMessage(*rec.Message) {
			e.log.Debug().Int("index", i).Msg("skipping OTP/verification notice")
			continue
		}
		if rec.Date == nil && rec.Amount == nil {
			recErr := domain.RecordError{Index: i, ID: rec.ID, Err: "fragment has neither date nor amount", Raw: rec.RawData}
			e.log.Warn().Int("index", i).Msg(recErr.Err)
			errs = append(errs, recErr)
			continue
		}

		records = append(records, rec)
	}

	return records, errs, nil
}

// selectFragments applies the selector fallback chain: exact tag names
// first, then the heuristic pass for tags containing a transaction/SMS
// hint.
func selectFragments(root *element) []*element {
	for _, tag := range fragmentSelectors {
		matched := root.descendants(func(n *element) bool { return n.name == tag })
		if len(matched) > 0 {
			return matched
		}
	}
	return root.descendants(func(n *element) bool {
		lower := strings.ToLower(n.name)
		return strings.Contains(lower, "transaction") || strings.Contains(lower, "sms")
	})
}

func (e *Extractor) extractFragment(frag *element, index int) domain.RawRecord {
	rec := domain.RawRecord{
		Index:     index,
		Date:      lookupField(frag, fieldCandidates.date),
		Amount:    lookupField(frag, fieldCandidates.amount),
		Phone:     lookupField(frag, fieldCandidates.phone),
		Message:   lookupField(frag, fieldCandidates.message),
		Status:    lookupField(frag, fieldCandidates.status),
		Type:      lookupField(frag, fieldCandidates.typ),
		Sender:    lookupField(frag, fieldCandidates.sender),
		Recipient: lookupField(frag, fieldCandidates.recipient),
		Fee:       lookupField(frag, fieldCandidates.fee),
		Balance:   lookupField(frag, fieldCandidates.balance),
		RawData:   frag.render(),
	}

	if id := lookupField(frag, fieldCandidates.id); id != nil {
		rec.ID = *id
	} else {
		rec.ID = fmt.Sprintf("TXN%06d", index)
	}
	return rec
}

// isOTPMessage reports whether the message carries one of the configured
// OTP/verification signatures.
func (e *Extractor) isOTPMessage(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range e.cfg.OTPKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
