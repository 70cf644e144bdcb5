package providers

import (
	"errors"
	"github.com/gookit/validate"
	"viewguard/internal/structures"
)

type CnfValidatorInterface interface {
	Validate() error
}

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) CnfValidatorInterface {
	return &CnfValidator{conf: conf}
}

func (c *CnfValidator) Validate() error {
	v := validate.Struct(c.conf)
	v.StopOnError = false
	if v.Validate() {
		return nil
	}
	return errors.New(v.Errors.String())
}
