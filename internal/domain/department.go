package domain

// Department represents an organizational unit that owns categories and tickets.
type Department struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
