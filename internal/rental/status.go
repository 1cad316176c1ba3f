package rental

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// completed & cancelled adalah terminal: tidak ada transisi keluar.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusActive: true, StatusCancelled: true},
	StatusActive:    {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
