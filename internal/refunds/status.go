package refunds

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusApproved: true, StatusRejected: true},
	StatusApproved:  {StatusCompleted: true},
	StatusRejected:  {StatusCompleted: true},
	StatusCompleted: {},
}

// Settable reports whether s may be requested through the status endpoint.
func (s Status) Settable() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCompleted
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

const (
	TypeFull    = "FULL"
	TypePartial = "PARTIAL"

	MethodBankTransfer = "BANK_TRANSFER"
)
