package model

// Protagonist is a canonical human identity. Raw sender strings from emails
// and chat exports are reconciled to exactly one of these.
type Protagonist struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func (p *Protagonist) FullName() string {
	if p == nil {
		return ""
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type ProtagonistEmail struct {
	ID            int64  `json:"id"`
	ProtagonistID int64  `json:"protagonist_id"`
	Address       string `json:"address"`
}
