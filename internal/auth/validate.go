package auth

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validation errors carry the message shown to the user.
var (
	ErrInvalidUsername = errors.New("username must be 4-20 letters or digits")
	ErrWeakPassword    = errors.New("password must be at least 8 characters with a letter, a digit and a symbol")
	ErrInvalidNickname = errors.New("nickname must be 2-10 characters")
)

// Rules shared by the single-field checks. Struct tags repeat them verbatim.
const (
	usernameRule = "required,alphanum,min=4,max=20"
	passwordRule = "required,min=8,password"
	nicknameRule = "required,min=2,max=10,singleline"
)

const passwordSymbols = "!@#$%^&*()_+-=[]{}|;':\",.<>?/`~"

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("password", strongPassword)
		_ = validate.RegisterValidation("singleline", singleLine)
	})
	return validate
}

// strongPassword requires an ASCII letter, an ASCII digit and a symbol.
func strongPassword(fl validator.FieldLevel) bool {
	var letter, digit, symbol bool
	for _, r := range fl.Field().String() {
		switch {
		case ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z'):
			letter = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return letter && digit && symbol
}

func singleLine(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), "\r\n")
}

// Validate checks v against its validate tags. Failures are validator.ValidationErrors keyed by json
// field name; Describe turns them into a message.
func Validate(v any) error {
	return engine().Struct(v)
}

// Describe returns the user-facing message for the first failed field.
func Describe(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "invalid request"
	}
	switch fe := errs[0]; fe.Field() {
	case "username":
		return ErrInvalidUsername.Error()
	case "password":
		return ErrWeakPassword.Error()
	case "nickname":
		return ErrInvalidNickname.Error()
	default:
		return fe.Field() + " is invalid"
	}
}

func check(value, rule string, sentinel error) error {
	if err := engine().Var(value, rule); err != nil {
		return sentinel
	}
	return nil
}

func ValidateUsername(username string) error {
	return check(username, usernameRule, ErrInvalidUsername)
}

func ValidatePassword(password string) error {
	return check(password, passwordRule, ErrWeakPassword)
}

func ValidateNickname(nickname string) error {
	return check(nickname, nicknameRule, ErrInvalidNickname)
}
