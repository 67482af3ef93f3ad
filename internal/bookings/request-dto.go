package bookings

// BookTicketsRequest is the body of POST /movies/:movie/theatres/:theatre/bookings
type BookTicketsRequest struct {
	NumberOfTickets int      `json:"number_of_tickets" validate:"required,min=1,max=10"`
	SeatNumbers     []string `json:"seat_numbers" validate:"required,min=1,max=10,dive,required,max=20"`
}

// ListQuery holds ledger listing filters and pagination
type ListQuery struct {
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
	Status   string `form:"status"`
	Movie    string `form:"movie"`
	Theatre  string `form:"theatre"`
	DateFrom string `form:"date_from"` // 2006-01-02
	DateTo   string `form:"date_to"`   // 2006-01-02
}

// Normalize applies pagination defaults
func (q *ListQuery) Normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
}
