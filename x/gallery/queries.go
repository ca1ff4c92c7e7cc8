package gallery

import (
	"encoding/binary"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/orm"
)

// collectiblesPrefix is the raw store prefix that the collectible bucket
// keeps its models under.
const collectiblesPrefix = "collectbl:"

var _ weave.QueryHandler = (*ForSaleQuery)(nil)

// ForSaleQuery allows querying all collectibles of a gallery that are
// currently offered for sale, in the order they were minted.
//
// The query data is the gallery address, optionally followed by a big
// endian encoded uint64 offset and a big endian encoded uint64 limit. The
// offset is the index of the first collectible inspected. An offset past
// the last minted collectible produces an empty result.
type ForSaleQuery struct {
	collectibles orm.ModelBucket
}

func (q *ForSaleQuery) Query(db weave.ReadOnlyKVStore, mod string, data []byte) ([]weave.Model, error) {
	gallery, offset, limit, err := parseForSaleQuery(data)
	if err != nil {
		return nil, errors.Wrap(err, "query data")
	}

	start := append([]byte(collectiblesPrefix), collectibleKey(gallery, offset)...)
	_, end := prefixRange(append([]byte(collectiblesPrefix), gallery...))

	it, err := db.Iterator(start, end)
	if err != nil {
		return nil, errors.Wrap(err, "iterator")
	}
	defer it.Release()

	var res []weave.Model
	for uint64(len(res)) < limit {
		switch key, value, err := it.Next(); {
		case err == nil:
			var c Collectible
			if err := c.Unmarshal(value); err != nil {
				return nil, errors.Wrap(err, "unmarshal collectible")
			}
			if !c.ForSale {
				continue
			}
			res = append(res, weave.Pair(key, value))
		case errors.ErrIteratorDone.Is(err):
			return res, nil
		default:
			return nil, errors.Wrap(err, "iterate collectibles")
		}
	}
	return res, nil
}

func parseForSaleQuery(data []byte) (gallery weave.Address, offset int64, limit uint64, err error) {
	limit = 100
	switch len(data) {
	case weave.AddressLength:
		// Scan from the first collectible.
	case weave.AddressLength + 8:
		offset = int64(binary.BigEndian.Uint64(data[weave.AddressLength:]))
	case weave.AddressLength + 16:
		offset = int64(binary.BigEndian.Uint64(data[weave.AddressLength : weave.AddressLength+8]))
		limit = binary.BigEndian.Uint64(data[weave.AddressLength+8:])
	default:
		return nil, 0, 0, errors.Wrap(errors.ErrInput, "invalid length")
	}
	gallery = weave.Address(data[:weave.AddressLength])
	if err := gallery.Validate(); err != nil {
		return nil, 0, 0, errors.Wrap(err, "gallery address")
	}
	return gallery, offset, limit, nil
}

// CollectiblesByRarity returns the ids and records of all collectibles of a
// gallery that were minted with the given rarity tier, ordered by their
// index within the gallery. The id of a collectible exists only in its store
// key, so it is decoded from the keys the index lookup returns.
func CollectiblesByRarity(db weave.ReadOnlyKVStore, collectibles orm.ModelBucket, gallery weave.Address, rarity string) ([]int64, []*Collectible, error) {
	idx := make([]byte, 0, len(gallery)+len(rarity))
	idx = append(idx, gallery...)
	idx = append(idx, rarity...)
	var res []*Collectible
	keys, err := collectibles.ByIndex(db, "rarity", idx, &res)
	if err != nil {
		return nil, nil, errors.Wrap(err, "by rarity index")
	}
	ids := make([]int64, len(keys))
	for i, key := range keys {
		if len(key) < 8 {
			return nil, nil, errors.Wrapf(errors.ErrState, "malformed collectible key %x", key)
		}
		ids[i] = int64(binary.BigEndian.Uint64(key[len(key)-8:]))
	}
	return ids, res, nil
}

// prefixRange turns a prefix into (start, end) to create a range.
func prefixRange(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return prefix, end[:i+1]
		}
	}
	return prefix, nil
}
