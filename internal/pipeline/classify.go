package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/Bruno-te/Code-Crafters/internal/config"
	"github.com/Bruno-te/Code-Crafters/internal/domain"
)

// ClassifyVersion tags rows with the rule set that labeled them.
const ClassifyVersion = "1.0"

// Risk tier boundaries on the additive score.
const (
	riskHighScore   = 4
	riskMediumScore = 2
)

// Classifier derives the five labels from a normalized record. Every
// derivation is a pure function of the record and the rule tables, so
// classifying the same record twice always yields the same result.
type Classifier struct {
	cfg      *config.Config
	merchant *regexp.Regexp
	now      func() time.Time
}

// NewClassifier compiles the rule tables into a classifier.
func NewClassifier(cfg *config.Config) *Classifier {
	// A merchant number is a fully dialed in-country number, with or
	// without the leading '+'.
	pattern := `^\+?` + regexp.QuoteMeta(cfg.DialDigits()) + `\d{9}`
	return &Classifier{
		cfg:      cfg,
		merchant: regexp.MustCompile(pattern),
		now:      time.Now,
	}
}

// Classify is total: it never drops a record.
func (c *Classifier) Classify(rec domain.NormalizedRecord) domain.ClassifiedRecord {
	return domain.ClassifiedRecord{
		NormalizedRecord: rec,
		Category:         c.category(rec),
		AmountRange:      c.amountRange(rec.Amount),
		TimeCategory:     timeCategory(rec.Date),
		RiskLevel:        c.riskLevel(rec),
		Region:           c.region(rec.Phone),
		ClassifiedAt:     c.now(),
		ClassifyVersion:  ClassifyVersion,
	}
}

// category keeps an already-known type verbatim; otherwise it scores each
// configured category over the message keywords plus the phone and amount
// bonuses. Ties break on table order; an all-zero score is "unknown".
func (c *Classifier) category(rec domain.NormalizedRecord) domain.Category {
	if rec.Type != "" && rec.Type != string(domain.CategoryUnknown) {
		return domain.Category(rec.Type)
	}

	message := ""
	if rec.Message != nil {
		message = strings.ToLower(*rec.Message)
	}

	scores := make(map[string]int, len(c.cfg.Categories))
	order := make([]string, 0, len(c.cfg.Categories))
	for _, rule := range c.cfg.Categories {
		order = append(order, rule.Name)
		for _, keyword := range rule.Keywords {
			if strings.Contains(message, strings.ToLower(keyword)) {
				scores[rule.Name]++
			}
		}
	}

	// Bonuses only apply to categories present in the rule table.
	bonus := func(name string, points int) {
		for _, n := range order {
			if n == name {
				scores[name] += points
				return
			}
		}
	}

	if rec.Phone != nil && c.merchant.MatchString(*rec.Phone) {
		bonus(string(domain.CategoryPayment), 2)
	}
	if rec.Amount != nil {
		if *rec.Amount < c.cfg.Thresholds.Small {
			bonus(string(domain.CategoryDeposit), 1)
		} else if *rec.Amount > c.cfg.Thresholds.Large {
			bonus(string(domain.CategoryTransfer), 1)
		}
	}

	best := ""
	bestScore := 0
	for _, name := range order {
		if scores[name] > bestScore {
			best = name
			bestScore = scores[name]
		}
	}
	if bestScore == 0 {
		return domain.CategoryUnknown
	}
	return domain.Category(best)
}

// amountRange buckets the amount against the three ascending thresholds.
func (c *Classifier) amountRange(amount *float64) domain.AmountRange {
	if amount == nil {
		return domain.AmountUnknown
	}
	switch {
	case *amount <= c.cfg.Thresholds.Small:
		return domain.AmountSmall
	case *amount <= c.cfg.Thresholds.Medium:
		return domain.AmountMedium
	case *amount <= c.cfg.Thresholds.Large:
		return domain.AmountLarge
	default:
		return domain.AmountVeryLarge
	}
}

// timeCategory buckets the hour of day: morning [6,12), afternoon
// [12,17), evening [17,21), night otherwise.
func timeCategory(date *time.Time) domain.TimeCategory {
	if date == nil {
		return domain.TimeUnknown
	}
	hour := date.Hour()
	switch {
	case hour >= 6 && hour < 12:
		return domain.TimeMorning
	case hour >= 12 && hour < 17:
		return domain.TimeAfternoon
	case hour >= 17 && hour < 21:
		return domain.TimeEvening
	default:
		return domain.TimeNight
	}
}

// riskLevel adds up the risk signals: amount above the three configured
// cutoffs (1-3 points), night-time (+1), failed/pending status (+1),
// suspicious phone (+2). Score >= 4 is high, >= 2 medium, else low.
func (c *Classifier) riskLevel(rec domain.NormalizedRecord) domain.RiskLevel {
	score := 0

	amount := 0.0
	if rec.Amount != nil {
		amount = *rec.Amount
	}
	cutoffs := c.cfg.Risk.Cutoffs
	switch {
	case amount > cutoffs[2]:
		score += 3
	case amount > cutoffs[1]:
		score += 2
	case amount > cutoffs[0]:
		score++
	}

	if timeCategory(rec.Date) == domain.TimeNight {
		score++
	}
	if rec.Status == domain.StatusFailed || rec.Status == domain.StatusPending {
		score++
	}
	if rec.Phone != nil && isSuspiciousPhone(*rec.Phone) {
		score += 2
	}

	switch {
	case score >= riskHighScore:
		return domain.RiskHigh
	case score >= riskMediumScore:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// isSuspiciousPhone flags runs of nine identical digits and ascending or
// descending sequential blocks.
func isSuspiciousPhone(phone string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	run := 0
	var prev rune
	for i, r := range digits {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= 9 {
			return true
		}
		prev = r
	}

	return strings.Contains(digits, "123456789") || strings.Contains(digits, "987654321")
}

// region maps the two digits after the country dial code through the
// area-code table. Foreign or absent numbers are "unknown"; unmapped
// in-country codes are "Other".
func (c *Classifier) region(phone *string) string {
	if phone == nil {
		return domain.RegionUnknown
	}
	dialCode := c.cfg.Country.DialCode
	if !strings.HasPrefix(*phone, dialCode) {
		return domain.RegionUnknown
	}
	rest := (*phone)[len(dialCode):]
	if len(rest) < 2 {
		return domain.RegionUnknown
	}
	if name, ok := c.cfg.Regions[rest[:2]]; ok {
		return name
	}
	return domain.RegionOther
}
