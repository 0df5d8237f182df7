package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/academia/core"
)

var (
	accountTypeTag = "accounttype"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdUpperTag   = "pwdupper"
	pwdLowerTag   = "pwdlower"
	pwdDigitTag   = "pwddigit"
	pwdSpecialTag = "pwdspecial"
	specialRegex  = regexp.MustCompile("[^A-Za-z0-9]")
	pwdMaxSim     = .7
	pwdAttrSimTag = "pwdtoosim"

	fieldOrder = []string{"account_type", "first_name", "last_name", "email", "phone", "department", "password", "password_confirm"}

	messages = map[string]string{
		"account_type." + accountTypeTag: "Invalid account type",
		"name.required":                  "Name is required",
		"password.required":              "Password is required",
		"password." + pwdMinLenTag:       fmt.Sprintf("Password must be at least %d characters long", pwdMinLen),
		"password." + pwdUpperTag:        "Password must contain at least one uppercase letter",
		"password." + pwdLowerTag:        "Password must contain at least one lowercase letter",
		"password." + pwdDigitTag:        "Password must contain at least one number",
		"password." + pwdSpecialTag:      "Password must contain at least one special character",
		"password." + pwdAttrSimTag:      "Password cannot be similar to your personal details",
		"password_confirm.eqfield":       "Passwords do not match",
	}

	msgMissingCredentials = "Please enter both email and password"
	msgInvalidLoginEmail  = "Please enter a valid email address"
)

// InitValidators registers the password policy and the account messages.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(accountStructValidation, NewAccount{}, NewAdmin{}, passwordReset{})
	core.RegisterFieldMessages(translator, messages)
}

// accountStructValidation does struct level validation on the account inputs carrying a password.
func accountStructValidation(sl validator.StructLevel) {
	switch acc := sl.Current().Interface().(type) {
	case NewAccount:
		switch acc.AccountType {
		case core.RoleInstructor, core.RoleStudent:
		default:
			sl.ReportError(acc.AccountType, "account_type", "AccountType", accountTypeTag, "")
		}
		validatePassword(acc.Password, sl, acc.FirstName, acc.LastName, acc.FirstName+" "+acc.LastName, acc.Email)
	case NewAdmin:
		validatePassword(acc.Password, sl, acc.Name, acc.Email)
	case passwordReset:
		validatePassword(acc.Password, sl, acc.name, acc.email)
	}
}

// validatePassword reports every rule of the password policy pwd breaks:
// - minLen: 8
// - 1 upper, 1 lower, 1 digit, 1 special
// - no similarity with the personal details in attrs
func validatePassword(pwd string, sl validator.StructLevel, attrs ...string) {
	if pwd == "" {
		return // left to `required`
	}
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, char := range pwd {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	if len([]rune(pwd)) < pwdMinLen {
		reportErr(pwdMinLenTag)
	}
	if !hasUpper {
		reportErr(pwdUpperTag)
	}
	if !hasLower {
		reportErr(pwdLowerTag)
	}
	if !hasDigit {
		reportErr(pwdDigitTag)
	}
	if !specialRegex.MatchString(pwd) {
		reportErr(pwdSpecialTag)
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(attr, "")).QuickRatio()
		if ratio >= pwdMaxSim {
			reportErr(pwdAttrSimTag)
			return
		}
	}
}
