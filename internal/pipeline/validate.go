// Package pipeline runs one price-tracking pass: validate descriptors,
// extract readings concurrently, drop stale readings, persist the rest and
// hand them to the notifier.
package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/pricepulse/backend/internal/apperror"
	"github.com/pricepulse/backend/internal/model"
	"github.com/shopspring/decimal"
)

// DescriptorInput is the loosely-typed record handed to a run by the caller.
// Fields arrive as whatever JSON decoding produced, so each is checked and
// coerced exactly once here; downstream stages only ever see typed
// descriptors.
type DescriptorInput struct {
	ProductID     any `json:"product_id"`
	URL           any `json:"url"`
	ProductCode   any `json:"product_code"`
	ProductName   any `json:"product_name"`
	WebsiteName   any `json:"website_name"`
	PreviousPrice any `json:"previous_price"`
}

// ValidateDescriptor checks a raw record and converts it into a typed
// descriptor. A record is valid iff product_id, url, product_code,
// product_name and website_name are all present with the right types;
// product_code given as a digit string is coerced to an integer. Validation
// is pure, so applying it twice yields the same outcome.
func ValidateDescriptor(raw DescriptorInput) (model.ProductDescriptor, error) {
	productID, ok := coerceInt64(raw.ProductID)
	if !ok {
		return model.ProductDescriptor{}, apperror.Wrapf(apperror.KindValidation, apperror.ErrInvalidRecord, "product_id must be an integer, got %T", raw.ProductID)
	}

	url, ok := raw.URL.(string)
	if !ok || url == "" {
		return model.ProductDescriptor{}, apperror.Wrapf(apperror.KindValidation, apperror.ErrInvalidRecord, "url must be a non-empty string")
	}

	productCode, ok := coerceInt64(raw.ProductCode)
	if !ok {
		return model.ProductDescriptor{}, apperror.Wrapf(apperror.KindValidation, apperror.ErrInvalidRecord, "product_code must be an integer or digit string, got %v", raw.ProductCode)
	}

	productName, ok := raw.ProductName.(string)
	if !ok || productName == "" {
		return model.ProductDescriptor{}, apperror.Wrapf(apperror.KindValidation, apperror.ErrInvalidRecord, "product_name must be a non-empty string")
	}

	websiteName, ok := raw.WebsiteName.(string)
	if !ok || websiteName == "" {
		return model.ProductDescriptor{}, apperror.Wrapf(apperror.KindValidation, apperror.ErrInvalidRecord, "website_name must be a non-empty string")
	}

	previousPrice, err := coerceNullDecimal(raw.PreviousPrice)
	if err != nil {
		return model.ProductDescriptor{}, apperror.Wrapf(apperror.KindValidation, apperror.ErrInvalidRecord, "previous_price: %v", err)
	}

	return model.ProductDescriptor{
		ProductID:     productID,
		URL:           url,
		ProductCode:   productCode,
		ProductName:   productName,
		WebsiteName:   websiteName,
		PreviousPrice: previousPrice,
	}, nil
}

// coerceInt64 accepts the integer shapes JSON decoding and callers produce:
// native ints, whole floats, json.Number and digit strings.
func coerceInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		parsed, err := n.Int64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func coerceNullDecimal(v any) (decimal.NullDecimal, error) {
	switch p := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(p)), nil
	case json.Number:
		d, err := decimal.NewFromString(p.String())
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		return decimal.NewNullDecimal(d), nil
	case string:
		if p == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err := decimal.NewFromString(p)
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		return decimal.NewNullDecimal(d), nil
	case decimal.Decimal:
		return decimal.NewNullDecimal(p), nil
	case decimal.NullDecimal:
		return p, nil
	default:
		return decimal.NullDecimal{}, fmt.Errorf("unsupported type %T", v)
	}
}
