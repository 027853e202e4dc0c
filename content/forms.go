package content

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// PostForm is what an author may set on a post.
type PostForm struct {
	Title            string `form:"title" json:"title" validate:"required,max=250"`
	ShortDescription string `form:"short_description" json:"short_description" validate:"required,max=250"`
	FullDescription  string `form:"full_description" json:"full_description"`
	Image            string `form:"image" json:"image" validate:"max=400" copier:"-"`
	Posted           bool   `form:"posted" json:"posted" copier:"-"`
}

type CommentForm struct {
	Username string `form:"username" validate:"required,max=250"`
	Text     string `form:"text" validate:"required"`
}

type FeedbackForm struct {
	Email   string `form:"email" validate:"required,email"`
	Message string `form:"message" validate:"required"`
}

type RegisterForm struct {
	Username  string `form:"username" validate:"required,max=150,alphanumunicode"`
	Email     string `form:"email" validate:"required,email"`
	Password1 string `form:"password1" validate:"required,min=8"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

type ProfileForm struct {
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Email     string `form:"email" validate:"omitempty,email"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate trims every string field of form (a pointer to a struct) and checks
// its validate tags.
func Validate(form any) error {
	trimStrings(form)

	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = message(fe)
		}
	}
	return &ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "The two password fields didn't match."
	case "alphanumunicode":
		return "Enter a valid username. Letters and digits only."
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}

func trimStrings(form any) {
	v := reflect.ValueOf(form)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() && !strings.HasPrefix(v.Type().Field(i).Name, "Password") {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}
