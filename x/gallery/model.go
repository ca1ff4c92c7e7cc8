package gallery

import (
	"encoding/binary"

	weave "github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Gallery{}, migration.NoModification)
	migration.MustRegister(1, &Collectible{}, migration.NoModification)
}

var _ orm.Model = (*Gallery)(nil)

func (m *Gallery) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "Owner", m.Owner.Validate())
	if m.Collectibles < 0 {
		errs = errors.AppendField(errs, "Collectibles",
			errors.Wrap(errors.ErrState, "must not be negative"))
	}
	return errs
}

func (m *Gallery) Copy() orm.CloneableData {
	return &Gallery{
		Metadata:     m.Metadata.Copy(),
		Owner:        m.Owner.Clone(),
		Collectibles: m.Collectibles,
	}
}

// NewGalleryBucket returns a bucket for keeping track of galleries. A
// gallery is stored under the address of the account owning it, so no ID
// sequence is used.
func NewGalleryBucket() orm.ModelBucket {
	b := orm.NewModelBucket("gallery", &Gallery{})
	return migration.NewModelBucket("gallery", b)
}

var _ orm.Model = (*Collectible)(nil)

func (m *Collectible) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "Owner", m.Owner.Validate())
	if len(m.Name) == 0 {
		errs = errors.AppendField(errs, "Name", errors.ErrEmpty)
	}
	if len(m.Rarity) == 0 {
		errs = errors.AppendField(errs, "Rarity", errors.ErrEmpty)
	}
	// A collectible that was never priced holds a zero coin without a
	// ticker. Such price is not a valid coin and must not be validated.
	if m.ForSale || m.Price.Ticker != "" {
		errs = errors.AppendField(errs, "Price", m.Price.Validate())
	}
	if m.Auction != nil {
		errs = errors.AppendField(errs, "Auction", m.Auction.Validate())
	}
	return errs
}

func (m *Collectible) Copy() orm.CloneableData {
	var auction *Auction
	if m.Auction != nil {
		auction = m.Auction.Clone()
	}
	return &Collectible{
		Metadata:    m.Metadata.Copy(),
		Owner:       m.Owner.Clone(),
		Name:        m.Name,
		Description: m.Description,
		Uri:         m.Uri,
		Rarity:      m.Rarity,
		Price:       *m.Price.Clone(),
		ForSale:     m.ForSale,
		Auction:     auction,
	}
}

func (m *Auction) Validate() error {
	var errs error
	if m.CollectibleId < 0 {
		errs = errors.AppendField(errs, "CollectibleId",
			errors.Wrap(errors.ErrInput, "must not be negative"))
	}
	errs = errors.AppendField(errs, "StartingPrice", m.StartingPrice.Validate())
	errs = errors.AppendField(errs, "HighestBid", m.HighestBid.Validate())
	errs = errors.AppendField(errs, "HighestBidder", m.HighestBidder.Validate())
	errs = errors.AppendField(errs, "Timeout", m.Timeout.Validate())
	return errs
}

func (m *Auction) Clone() *Auction {
	return &Auction{
		CollectibleId: m.CollectibleId,
		StartingPrice: *m.StartingPrice.Clone(),
		HighestBid:    *m.HighestBid.Clone(),
		HighestBidder: m.HighestBidder.Clone(),
		Timeout:       m.Timeout,
	}
}

// NewCollectibleBucket returns a bucket for keeping track of collectibles.
// Each collectible is stored under the address of the gallery it was minted
// in, followed by its big endian encoded index within that gallery. Keys of
// collectibles from a single gallery are therefore iterable in mint order.
func NewCollectibleBucket() orm.ModelBucket {
	b := orm.NewModelBucket("collectbl", &Collectible{},
		orm.WithNativeIndex("rarity", collectibleRarity),
	)
	return migration.NewModelBucket("gallery", b)
}

// collectibleKey returns the store key of a collectible. Collectibles do not
// use a global sequence. They are numbered within their gallery, starting
// from zero.
func collectibleKey(gallery weave.Address, id int64) []byte {
	key := make([]byte, 0, weave.AddressLength+8)
	key = append(key, gallery...)
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(id))
	return append(key, raw...)
}

// collectibleRarity indexes collectibles by the gallery address together
// with the rarity tier, so that all collectibles of one tier within a
// gallery can be found with a single prefix scan.
func collectibleRarity(o orm.Object) ([][]byte, error) {
	c, ok := o.Value().(*Collectible)
	if !ok {
		return nil, errors.Wrap(errors.ErrType, "not a Collectible")
	}
	key := o.Key()
	if len(key) != weave.AddressLength+8 {
		return nil, errors.Wrap(errors.ErrInput, "invalid collectible key length")
	}
	idx := make([]byte, 0, weave.AddressLength+len(c.Rarity))
	idx = append(idx, key[:weave.AddressLength]...)
	idx = append(idx, c.Rarity...)
	return [][]byte{idx}, nil
}
