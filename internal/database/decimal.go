package database

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToDecimal converts a stored Decimal128 to a decimal.Decimal.
// Values that cannot be parsed (NaN, Inf) read as zero.
func ToDecimal(d primitive.Decimal128) decimal.Decimal {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero
	}
	return v
}

// FromDecimal converts a decimal.Decimal to its stored Decimal128 form.
func FromDecimal(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		v, _ = primitive.ParseDecimal128("0")
	}
	return v
}
