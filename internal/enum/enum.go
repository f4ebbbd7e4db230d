package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusReceived  = "RECEIVED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusCompleted = "COMPLETED"
)

const (
	PaymentStatusUnpaid = "UNPAID"
	PaymentStatusPaid   = "PAID"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleCashier = "cashier"
	UserRoleOwner   = "owner"
)

// ── Group B: Derived labels (never stored) ──

const (
	UrgencyNormal   = "normal"
	UrgencyWarning  = "warning"
	UrgencyUrgent   = "urgent"
	UrgencyCritical = "critical"
)

const (
	FeedModeIncremental = "incremental"
	FeedModeRegenerate  = "regenerate"
)

const (
	CategoryFood    = "Makanan"
	CategoryDrink   = "Minuman"
	CategorySnack   = "Cemilan"
	CategoryDessert = "Dessert"
)
