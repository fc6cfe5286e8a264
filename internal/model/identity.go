package model

type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
	RoleAdmin       Role = "admin"
)

// Valid проверяет что роль известна
func (r Role) Valid() bool {
	return r == RoleCandidate || r == RoleInterviewer || r == RoleAdmin
}

// Identity вызывающий пользователь, приходит с транспортного слоя
type Identity struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) IsInterviewer() bool {
	return i.Role == RoleInterviewer
}
