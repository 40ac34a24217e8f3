package models

// ReceiptCounter tracks the last receipt sequence issued per business day.
type ReceiptCounter struct {
	Day     string `gorm:"column:day;size:8;primaryKey"`
	LastSeq int64  `gorm:"column:last_seq;not null"`
}
