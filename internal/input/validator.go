package input

import (
	"fmt"
	"regexp"
	"strconv"

	deploy_model "vps-deploy/datamodel/deploy-model"

	"github.com/go-playground/validator/v10"
)

var (
	httpURLRegex     = regexp.MustCompile(`^https?://\S+$`)
	dotted4Regex     = regexp.MustCompile(`^[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}$`)
	digitsRegex      = regexp.MustCompile(`^[0-9]+$`)
	projectNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
)

// Validator checks operator input before it is accepted
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the deployer's custom rules registered
func NewValidator() *Validator {
	v := validator.New()

	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return httpURLRegex.MatchString(fl.Field().String())
	})
	// Octet range is not checked: 999.999.999.999 passes.
	_ = v.RegisterValidation("dotted4", func(fl validator.FieldLevel) bool {
		return dotted4Regex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("tcpport", func(fl validator.FieldLevel) bool {
		return validPort(fl.Field().String())
	})
	_ = v.RegisterValidation("projectname", func(fl validator.FieldLevel) bool {
		// Names image tags and containers: lowercase, leading alphanumeric.
		return projectNameRegex.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// URL validates a repository URL
func (v *Validator) URL(value string) error {
	return v.validate.Var(value, "required,httpurl")
}

// Address validates a server address in dotted-decimal form
func (v *Validator) Address(value string) error {
	return v.validate.Var(value, "required,dotted4")
}

// Port validates a decimal port string and returns its value
func (v *Validator) Port(value string) (int, error) {
	if err := v.validate.Var(value, "required,tcpport"); err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

// ProjectName validates a derived project name
func (v *Validator) ProjectName(value string) error {
	return v.validate.Var(value, "required,projectname")
}

// Request validates a fully collected deployment request
func (v *Validator) Request(req deploy_model.DeploymentRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return fmt.Errorf("deployment request: %w", err)
	}
	return nil
}

func validPort(value string) bool {
	if !digitsRegex.MatchString(value) {
		return false
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	return port >= 1 && port <= 65535
}
