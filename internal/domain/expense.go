package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type Expense struct {
	ID        string    `json:"id"`
	Day       int       `json:"day"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Category  string    `json:"category,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cents is the amount in hundredths, rounded half away from zero.
func (e Expense) Cents() int64 {
	cents, _ := AmountCents(e.Amount)
	return cents
}

// AmountCents converts amount to hundredths from its shortest decimal form,
// so 1.005 rounds as written instead of as 1.00499... exact is false when
// the amount carries more than two fraction digits.
func AmountCents(amount float64) (cents int64, exact bool) {
	digits := strconv.FormatFloat(math.Abs(amount), 'f', -1, 64)
	whole, frac, _ := strings.Cut(digits, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || n > math.MaxInt64/100-1 {
		return int64(math.Round(amount * 100)), false
	}
	exact = len(frac) <= 2
	frac += "000"
	cents = n*100 + int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if frac[2] >= '5' {
		cents++
	}
	if amount < 0 {
		cents = -cents
	}
	return cents, exact
}

type CreateExpenseRequest struct {
	Day      int     `json:"day" validate:"required,min=1"`
	Title    string  `json:"title" validate:"required,max=200"`
	Amount   float64 `json:"amount" validate:"gt=0"`
	Currency string  `json:"currency" validate:"required,iso4217"`
	Category string  `json:"category" validate:"max=50"`
	Note     string  `json:"note" validate:"max=1000"`
}

type UpdateExpenseRequest struct {
	Day      *int     `json:"day" validate:"omitempty,min=1"`
	Title    *string  `json:"title" validate:"omitempty,max=200"`
	Amount   *float64 `json:"amount" validate:"omitempty,gt=0"`
	Currency *string  `json:"currency" validate:"omitempty,iso4217"`
	Category *string  `json:"category" validate:"omitempty,max=50"`
	Note     *string  `json:"note" validate:"omitempty,max=1000"`
}

func (r UpdateExpenseRequest) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if r.Day != nil {
		fields["day"] = *r.Day
	}
	if r.Title != nil {
		fields["title"] = *r.Title
	}
	if r.Amount != nil {
		fields["amount"] = *r.Amount
	}
	if r.Currency != nil {
		fields["currency"] = *r.Currency
	}
	if r.Category != nil {
		fields["category"] = *r.Category
	}
	if r.Note != nil {
		fields["note"] = *r.Note
	}
	return fields
}

// CurrencyTotal is the sum of expenses in one currency.
type CurrencyTotal struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}

type DayTotals struct {
	Day    int             `json:"day"`
	Totals []CurrencyTotal `json:"totals"`
}

type ExpenseTotals struct {
	Overall []CurrencyTotal `json:"overall"`
	ByDay   []DayTotals     `json:"by_day"`
}

func ExpensesPath(userID, itineraryID string) string {
	return ItineraryPath(userID, itineraryID) + "/expenses"
}
