package model

// ScanCategory tells a decoder which entity table a scanned code
// belongs to.
type ScanCategory string

const (
	CategoryItem    ScanCategory = "item"
	CategoryStorage ScanCategory = "storage"
)

func (c ScanCategory) Valid() bool {
	return c == CategoryItem || c == CategoryStorage
}

// LabelPayload is the JSON document embedded in a printed QR label.
// Name is optional: older label generations omit it and readers fall
// back to a lookup by code.
type LabelPayload struct {
	Code     string       `json:"code"`
	Name     string       `json:"name,omitempty"`
	Category ScanCategory `json:"category"`
}
