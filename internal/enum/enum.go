package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusAccepted  = "ACCEPTED"
	OrderStatusCompleted = "COMPLETED"
)

const (
	OrderItemStatusPending   = "PENDING"
	OrderItemStatusReceived  = "RECEIVED"
	OrderItemStatusDelivered = "DELIVERED"
)

const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
)

// ── Group B: Tab presentation states (derived, never persisted) ──

const (
	TabStatusAvailable  = "AVAILABLE"
	TabStatusOccupied   = "OCCUPIED"
	TabStatusReadyToPay = "READY_TO_PAY"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	TargetTypeTable       = "TABLE"
	TargetTypeRoom        = "ROOM"
	TargetTypeAppointment = "APPOINTMENT"
	// TargetTypeCounter is the synthetic target for walk-up sales. Counter
	// orders never participate in tab aggregation or archival.
	TargetTypeCounter = "COUNTER"
)

const (
	OrderSourceInternal = "INTERNAL"
	OrderSourcePublic   = "PUBLIC"
)

const (
	TransactionTypeIncome  = "INCOME"
	TransactionTypeExpense = "EXPENSE"
)

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

// ── Group D: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodPix      = "PIX"
	PaymentMethodTransfer = "TRANSFER"
)

// Stock movement reasons and ledger categories. The Portuguese labels come
// from the PDV screens and are stored verbatim in the ledgers.
const (
	StockReasonSale        = "Venda PDV"
	StockReasonConsumption = "Venda PDV (Consumo)"
	StockReasonRestock     = "Reposicao de estoque"

	TransactionCategorySale = "Venda de Produto"
)

// Order event messages recorded in the append-only history.
const (
	EventOrderCreatedInternal = "Pedido criado internamente"
	EventOrderCreatedPublic   = "Pedido criado pelo cliente"
	EventOrderAccepted        = "Pedido aceito"
	EventOrderCompleted       = "Pedido finalizado"
	EventSaleFinalized        = "Venda finalizada"
)
