package diff

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"recipe-modifier/internal/pkg/common"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 錯誤訊息使用 JSON 欄位名稱
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRecipe 檢查比對所需欄位，side 用於錯誤訊息（original / modified）
func ValidateRecipe(side string, r *common.Recipe) error {
	if r == nil {
		return common.NewInvalidRecipeError("%s recipe is missing", side)
	}

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return common.NewInvalidRecipeError("%s recipe: %v", side, err)
		}

		problems := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, describeFieldError(fe))
		}
		return common.NewInvalidRecipeError("%s recipe: %s", side, strings.Join(problems, "; "))
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	// 去掉最外層的型別名稱 "Recipe."
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}
