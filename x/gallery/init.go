package gallery

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
)

// Initializer fulfils the Initializer interface to load data from the genesis
// file
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis will parse initial gallery info from genesis and save it to
// the database.
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, db weave.KVStore) error {
	var galleries []struct {
		Owner weave.Address `json:"owner"`
	}
	if err := opts.ReadOptions("gallery", &galleries); err != nil {
		return err
	}
	b := NewGalleryBucket()
	for i, g := range galleries {
		gallery := Gallery{
			Metadata: &weave.Metadata{Schema: 1},
			Owner:    g.Owner,
		}
		if err := gallery.Validate(); err != nil {
			return errors.Wrapf(err, "gallery %d is invalid", i)
		}
		if _, err := b.Put(db, gallery.Owner, &gallery); err != nil {
			return errors.Wrapf(err, "store gallery %d", i)
		}
	}

	conf := Configuration{
		Metadata: &weave.Metadata{Schema: 1},
	}
	switch err := gconf.InitConfig(db, opts, "gallery", &conf); {
	default:
		// All good.
	case errors.ErrNotFound.Is(err):
		// A genesis without a configuration is acceptable.
	case err != nil:
		return errors.Wrap(err, "cannot initialize gconf based configuration")
	}
	return nil
}
