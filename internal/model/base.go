package model

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"
