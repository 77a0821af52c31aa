package domain

// Category is the primary transaction classification.
type Category string

const (
	CategoryPayment    Category = "payment"
	CategoryTransfer   Category = "transfer"
	CategoryWithdrawal Category = "withdrawal"
	CategoryDeposit    Category = "deposit"
	CategoryUnknown    Category = "unknown"
)

// AmountRange buckets a transaction amount against configured thresholds.
type AmountRange string

const (
	AmountSmall     AmountRange = "small"
	AmountMedium    AmountRange = "medium"
	AmountLarge     AmountRange = "large"
	AmountVeryLarge AmountRange = "very_large"
	AmountUnknown   AmountRange = "unknown"
)

// TimeCategory buckets the hour-of-day of the transaction date.
type TimeCategory string

const (
	TimeMorning   TimeCategory = "morning"
	TimeAfternoon TimeCategory = "afternoon"
	TimeEvening   TimeCategory = "evening"
	TimeNight     TimeCategory = "night"
	TimeUnknown   TimeCategory = "unknown"
)

// RiskLevel is the additive-score risk tier.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RegionUnknown marks records whose phone number is absent or not in the
// configured country format; RegionOther marks in-country numbers whose
// area code has no table entry.
const (
	RegionUnknown = "unknown"
	RegionOther   = "Other"
)

// Canonical status vocabulary. Unrecognized inputs pass through the
// normalizer unchanged, so stored statuses are not limited to these.
const (
	StatusSuccess   = "success"
	StatusPending   = "pending"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusUnknown   = "unknown"
)
