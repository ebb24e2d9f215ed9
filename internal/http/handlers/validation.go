package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/receipt-processor/internal/domain"
)

var (
	// Letters, digits and spaces are Unicode-aware; \s alone is ASCII-only.
	retailerRE    = regexp.MustCompile(`^[\p{L}\p{N}_\p{Z}\s&-]+$`)
	descriptionRE = regexp.MustCompile(`^[\p{L}\p{N}_\p{Z}\s-]+$`)
	// Receipt ids carry no whitespace.
	receiptIDRE = regexp.MustCompile(`^\S+$`)

	registerOnce sync.Once
)

// registerValidators installs the receipt tags on gin's validator engine and
// reports field names by their JSON keys.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("handlers: gin binding engine is not go-playground/validator")
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		for tag, valid := range map[string]func(string) bool{
			"retailer":    retailerRE.MatchString,
			"description": descriptionRE.MatchString,
			"amount":      domain.ValidAmount,
			"clock": func(s string) bool {
				_, err := domain.ParseTimeOfDay(s)
				return err == nil
			},
		} {
			valid := valid
			if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return valid(fl.Field().String())
			}); err != nil {
				panic(err)
			}
		}
	})
}

// bindingProblem maps a ShouldBindJSON error to a status and field details.
func bindingProblem(err error) (int, []string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldPath(fe)+" failed "+describeTag(fe))
		}
		return http.StatusBadRequest, out
	}
	return http.StatusBadRequest, []string{err.Error()}
}

// fieldPath drops the struct name from a namespace such as
// "ReceiptRequest.items[0].price".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, found := strings.Cut(ns, "."); found {
		return rest
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
}
