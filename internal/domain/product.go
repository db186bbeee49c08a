package domain

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	FieldName     = "name"
	FieldPrice    = "price"
	FieldCategory = "category"
)

// ProductFields is the accessible attribute set of a Product, in form order.
var ProductFields = []string{FieldName, FieldPrice, FieldCategory}

// Product is the persisted record. Price stays a string the way it is
// stored; the money rule only checks that it reads as an amount.
type Product struct {
	ID        int64     `json:"id" form:"-"`
	Name      string    `json:"name" form:"name" validate:"required"`
	Price     string    `json:"price" form:"price" validate:"required,money"`
	Category  string    `json:"category" form:"category" validate:"required"`
	CreatedAt time.Time `json:"created_at" form:"-"`
	UpdatedAt time.Time `json:"updated_at" form:"-"`
}

// ProductFromFields builds a Product from the persistable subset of raw.
func ProductFromFields(raw map[string]string) Product {
	fields := ExtractPersistableFields(raw)
	return Product{
		Name:     fields[FieldName],
		Price:    fields[FieldPrice],
		Category: fields[FieldCategory],
	}
}

// Fields returns the accessible attributes as a field mapping.
func (p Product) Fields() map[string]string {
	return map[string]string{
		FieldName:     p.Name,
		FieldPrice:    p.Price,
		FieldCategory: p.Category,
	}
}

// ExtractPersistableFields keeps only keys that belong to the Product schema.
// Wizard bookkeeping (step, steps, session handles, validation maps, form
// tokens) never survives this call.
func ExtractPersistableFields(raw map[string]string) map[string]string {
	out := make(map[string]string, len(ProductFields))
	for _, f := range ProductFields {
		if v, ok := raw[f]; ok {
			out[f] = v
		}
	}
	return out
}

var messages = map[string]string{
	"required": "can't be blank",
	"money":    "is not a valid amount",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func productValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		// Registration only fails for an empty tag or nil func.
		_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
			return err == nil && !d.IsNegative()
		})
		validate = v
	})
	return validate
}

// ValidateProduct runs every field rule against p and returns the failures
// keyed by form field name.
func ValidateProduct(p Product) FieldErrors {
	errs := FieldErrors{}
	err := productValidator().Struct(p)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(BaseField, err.Error())
		return errs
	}
	for _, fe := range verrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		errs.Add(fe.Field(), msg)
	}
	return errs
}
