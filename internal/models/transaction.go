package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	InvoiceNo   string
	StockCode   string
	Description string
	CustomerID  string
	Country     string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalAmount decimal.Decimal
	InvoiceDate time.Time
}

// NewTransaction fills TotalAmount from Quantity and UnitPrice.
func NewTransaction(invoiceNo, stockCode, description, customerID, country string, quantity int, unitPrice decimal.Decimal, invoiceDate time.Time) Transaction {
	return Transaction{
		InvoiceNo:   invoiceNo,
		StockCode:   stockCode,
		Description: description,
		CustomerID:  customerID,
		Country:     country,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalAmount: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		InvoiceDate: invoiceDate,
	}
}

func (t Transaction) YearMonth() string {
	return t.InvoiceDate.Format("2006-01")
}

func (t Transaction) Date() string {
	return t.InvoiceDate.Format("2006-01-02")
}

func (t Transaction) DayName() string {
	return t.InvoiceDate.Weekday().String()
}

func (t Transaction) Hour() int {
	return t.InvoiceDate.Hour()
}

func (t Transaction) MonthName() string {
	return t.InvoiceDate.Month().String()
}

// Transaction column names understood by the rollup engine.
const (
	ColInvoiceNo   = "invoice_no"
	ColStockCode   = "stock_code"
	ColDescription = "description"
	ColCustomerID  = "customer_id"
	ColCountry     = "country"
	ColQuantity    = "quantity"
	ColUnitPrice   = "unit_price"
	ColTotalAmount = "total_amount"
	ColYearMonth   = "year_month"
	ColDate        = "date"
	ColDayName     = "day_name"
	ColHour        = "hour"
	ColMonthName   = "month_name"
)

// Text returns the textual form of a transaction column.
func (t Transaction) Text(column string) (string, bool) {
	switch column {
	case ColInvoiceNo:
		return t.InvoiceNo, t.InvoiceNo != ""
	case ColStockCode:
		return t.StockCode, t.StockCode != ""
	case ColDescription:
		return t.Description, t.Description != ""
	case ColCustomerID:
		return t.CustomerID, t.CustomerID != ""
	case ColCountry:
		return t.Country, t.Country != ""
	case ColQuantity:
		return strconv.Itoa(t.Quantity), true
	case ColUnitPrice:
		return t.UnitPrice.String(), true
	case ColTotalAmount:
		return t.TotalAmount.String(), true
	case ColYearMonth:
		return t.YearMonth(), !t.InvoiceDate.IsZero()
	case ColDate:
		return t.Date(), !t.InvoiceDate.IsZero()
	case ColDayName:
		return t.DayName(), !t.InvoiceDate.IsZero()
	case ColHour:
		return strconv.Itoa(t.Hour()), !t.InvoiceDate.IsZero()
	case ColMonthName:
		return t.MonthName(), !t.InvoiceDate.IsZero()
	}
	return "", false
}

// Number returns the numeric form of a transaction column.
func (t Transaction) Number(column string) (decimal.Decimal, bool) {
	switch column {
	case ColQuantity:
		return decimal.NewFromInt(int64(t.Quantity)), true
	case ColUnitPrice:
		return t.UnitPrice, true
	case ColTotalAmount:
		return t.TotalAmount, true
	case ColHour:
		return decimal.NewFromInt(int64(t.Hour())), !t.InvoiceDate.IsZero()
	}
	return decimal.Zero, false
}

// TransactionColumns lists every transaction column and whether it is numeric.
var TransactionColumns = map[string]bool{
	ColInvoiceNo:   false,
	ColStockCode:   false,
	ColDescription: false,
	ColCustomerID:  false,
	ColCountry:     false,
	ColQuantity:    true,
	ColUnitPrice:   true,
	ColTotalAmount: true,
	ColYearMonth:   false,
	ColDate:        false,
	ColDayName:     false,
	ColHour:        true,
	ColMonthName:   false,
}
