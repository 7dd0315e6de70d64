package pricing

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// checkStruct validates v and maps the first failing field to a reason code
// from table. Nested fields are attributed to their top-level argument.
func checkStruct(v any, table map[string]*ValidationError) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	// StructNamespace is "Args.Field.Nested..."; drop the root struct name.
	_, path, _ := strings.Cut(fe.StructNamespace(), ".")
	base := fieldError(table, stripIndex(path))
	if base == nil {
		return err
	}
	return invalid(base, "%s (%s failed on %q)", strings.TrimSuffix(base.Message, "."), path, fe.Tag())
}

func stripIndex(path string) string {
	if i := strings.IndexByte(path, '['); i >= 0 {
		rest := path[i:]
		if j := strings.IndexByte(rest, ']'); j >= 0 {
			return path[:i] + rest[j+1:]
		}
	}
	return path
}
