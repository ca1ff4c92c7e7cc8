package gallery

import (
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Configuration{}, migration.NoModification)
}

var _ orm.Model = (*Configuration)(nil)

func (c *Configuration) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", c.Metadata.Validate())
	errs = errors.AppendField(errs, "Owner", c.Owner.Validate())
	errs = errors.AppendField(errs, "Admin", c.Admin.Validate())
	return errs
}

func (c *Configuration) Copy() orm.CloneableData {
	return &Configuration{
		Metadata: c.Metadata.Copy(),
		Owner:    c.Owner.Clone(),
		Admin:    c.Admin.Clone(),
	}
}
