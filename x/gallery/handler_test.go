package gallery

import (
	"context"
	"testing"
	"time"

	weave "github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	coin "github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/x/cash"
)

func TestUseCases(t *testing.T) {
	type Request struct {
		Now         weave.UnixTime
		Conditions  []weave.Condition
		Tx          weave.Tx
		BlockHeight int64
		WantErr     *errors.Error
	}

	type AccountBalance struct {
		Wallet weave.Address
		Amount coin.Coin
	}

	var (
		adminCond   = weavetest.NewCondition()
		aliceCond   = weavetest.NewCondition()
		bobCond     = weavetest.NewCondition()
		charlieCond = weavetest.NewCondition()
		daveCond    = weavetest.NewCondition()

		now = weave.UnixTime(1572247483)
	)

	cases := map[string]struct {
		Requests  []Request
		Funds     []AccountBalance
		AfterTest func(t *testing.T, db weave.KVStore)
	}{
		"an account can create only one gallery": {
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 101,
					WantErr:     errors.ErrDuplicate,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				var g Gallery
				if err := NewGalleryBucket().One(db, aliceCond.Address(), &g); err != nil {
					t.Fatalf("gallery: %s", err)
				}
				if !g.Owner.Equals(aliceCond.Address()) {
					t.Fatalf("unexpected gallery owner: %q", g.Owner)
				}
				if g.Collectibles != 0 {
					t.Fatalf("unexpected collectibles count: %d", g.Collectibles)
				}
			},
		},
		"minting requires a gallery and numbers collectibles sequentially": {
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "First",
							Rarity:   "rare",
						},
					},
					BlockHeight: 100,
					WantErr:     errors.ErrNotFound,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata:    &weave.Metadata{Schema: 1},
							Name:        "First",
							Description: "the first one",
							Uri:         "ipfs://first",
							Rarity:      "rare",
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					Now:        now + 3,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Second",
							Rarity:   "common",
						},
					},
					BlockHeight: 103,
					WantErr:     nil,
				},
				{
					Now:        now + 4,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Third",
							Rarity:   "rare",
						},
					},
					BlockHeight: 104,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				var g Gallery
				if err := NewGalleryBucket().One(db, aliceCond.Address(), &g); err != nil {
					t.Fatalf("gallery: %s", err)
				}
				if g.Collectibles != 3 {
					t.Fatalf("unexpected collectibles count: %d", g.Collectibles)
				}
				collectibles := NewCollectibleBucket()
				var first Collectible
				if err := collectibles.One(db, collectibleKey(aliceCond.Address(), 0), &first); err != nil {
					t.Fatalf("first collectible: %s", err)
				}
				if first.Name != "First" {
					t.Fatalf("unexpected first collectible: %q", first.Name)
				}
				var second Collectible
				if err := collectibles.One(db, collectibleKey(aliceCond.Address(), 1), &second); err != nil {
					t.Fatalf("second collectible: %s", err)
				}
				if second.Name != "Second" {
					t.Fatalf("unexpected second collectible: %q", second.Name)
				}
				ids, rare, err := CollectiblesByRarity(db, collectibles, aliceCond.Address(), "rare")
				if err != nil {
					t.Fatalf("by rarity: %s", err)
				}
				if len(rare) != 2 || rare[0].Name != "First" || rare[1].Name != "Third" {
					t.Fatalf("unexpected rare collectibles: %+v", rare)
				}
				// Ids of a rarity tier come back in mint order.
				if len(ids) != 2 || ids[0] != 0 || ids[1] != 2 {
					t.Fatalf("unexpected rare ids: %v", ids)
				}
			},
		},
		"only the owner can price, list and transfer a collectible": {
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &UpdatePriceMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(10, 0, "IOV"),
						},
					},
					BlockHeight: 102,
					WantErr:     errors.ErrUnauthorized,
				},
				{
					Now:        now + 3,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &OfferForSaleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(10, 0, "IOV"),
						},
					},
					BlockHeight: 103,
					WantErr:     errors.ErrUnauthorized,
				},
				{
					Now:        now + 4,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &TransferCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							NewOwner:  bobCond.Address(),
						},
					},
					BlockHeight: 104,
					WantErr:     errors.ErrUnauthorized,
				},
				{
					Now:        now + 5,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &UpdatePriceMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(25, 0, "IOV"),
						},
					},
					BlockHeight: 105,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				var c Collectible
				if err := NewCollectibleBucket().One(db, collectibleKey(aliceCond.Address(), 0), &c); err != nil {
					t.Fatalf("collectible: %s", err)
				}
				if !c.Price.Equals(coin.NewCoin(25, 0, "IOV")) {
					t.Fatalf("unexpected price: %q", c.Price)
				}
				if c.ForSale {
					t.Fatal("must not be for sale")
				}
			},
		},
		"a collectible cannot be offered for sale twice": {
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &OfferForSaleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(10, 0, "IOV"),
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					Now:        now + 3,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &OfferForSaleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(20, 0, "IOV"),
						},
					},
					BlockHeight: 103,
					WantErr:     errors.ErrState,
				},
				{
					// The price of a listed collectible can still be changed.
					Now:        now + 4,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &UpdatePriceMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(20, 0, "IOV"),
						},
					},
					BlockHeight: 104,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				var c Collectible
				if err := NewCollectibleBucket().One(db, collectibleKey(aliceCond.Address(), 0), &c); err != nil {
					t.Fatalf("collectible: %s", err)
				}
				if !c.ForSale {
					t.Fatal("must be for sale")
				}
				if !c.Price.Equals(coin.NewCoin(20, 0, "IOV")) {
					t.Fatalf("unexpected price: %q", c.Price)
				}
			},
		},
		"a direct sale splits the payment between the seller and the gallery": {
			Funds: []AccountBalance{
				{Wallet: charlieCond.Address(), Amount: coin.NewCoin(120, 0, "IOV")},
			},
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &TransferCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							NewOwner:  bobCond.Address(),
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					// Not offered for sale yet.
					Now:        now + 3,
					Conditions: []weave.Condition{charlieCond},
					Tx: &weavetest.Tx{
						Msg: &BuyCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Buyer:     charlieCond.Address(),
							Payment:   coin.NewCoin(100, 0, "IOV"),
						},
					},
					BlockHeight: 103,
					WantErr:     errors.ErrState,
				},
				{
					Now:        now + 4,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &OfferForSaleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(100, 0, "IOV"),
						},
					},
					BlockHeight: 104,
					WantErr:     nil,
				},
				{
					Now:        now + 5,
					Conditions: []weave.Condition{charlieCond},
					Tx: &weavetest.Tx{
						Msg: &BuyCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Buyer:     charlieCond.Address(),
							Payment:   coin.NewCoin(50, 0, "IOV"),
						},
					},
					BlockHeight: 105,
					WantErr:     errors.ErrAmount,
				},
				{
					Now:        now + 6,
					Conditions: []weave.Condition{charlieCond},
					Tx: &weavetest.Tx{
						Msg: &BuyCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Buyer:     charlieCond.Address(),
							Payment:   coin.NewCoin(100, 0, "IOV"),
						},
					},
					BlockHeight: 106,
					WantErr:     nil,
				},
				{
					// Sold, so it cannot be bought again.
					Now:        now + 7,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &BuyCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Buyer:     bobCond.Address(),
							Payment:   coin.NewCoin(100, 0, "IOV"),
						},
					},
					BlockHeight: 107,
					WantErr:     errors.ErrState,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				// 2% of the 100 IOV price goes to the gallery
				// account, the rest goes to the seller.
				assertFunds(t, db, bobCond.Address(), coin.NewCoin(98, 0, "IOV"))
				assertFunds(t, db, aliceCond.Address(), coin.NewCoin(2, 0, "IOV"))
				assertFunds(t, db, charlieCond.Address(), coin.NewCoin(20, 0, "IOV"))

				var c Collectible
				if err := NewCollectibleBucket().One(db, collectibleKey(aliceCond.Address(), 0), &c); err != nil {
					t.Fatalf("collectible: %s", err)
				}
				if !c.Owner.Equals(charlieCond.Address()) {
					t.Fatalf("unexpected owner: %q", c.Owner)
				}
				if c.ForSale {
					t.Fatal("must no longer be for sale")
				}
				if !c.Price.IsZero() {
					t.Fatalf("price must be reset after a sale: %q", c.Price)
				}
			},
		},
		"an owner can buy back their own listing": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(100, 0, "IOV")},
			},
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &TransferCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							NewOwner:  bobCond.Address(),
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					Now:        now + 3,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &OfferForSaleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(100, 0, "IOV"),
						},
					},
					BlockHeight: 103,
					WantErr:     nil,
				},
				{
					// Buying the own listing is allowed. The seller
					// revenue flows back to the buyer, only the fee
					// leaves the account.
					Now:        now + 4,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &BuyCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Buyer:     bobCond.Address(),
							Payment:   coin.NewCoin(100, 0, "IOV"),
						},
					},
					BlockHeight: 104,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				assertFunds(t, db, bobCond.Address(), coin.NewCoin(98, 0, "IOV"))
				assertFunds(t, db, aliceCond.Address(), coin.NewCoin(2, 0, "IOV"))

				var c Collectible
				if err := NewCollectibleBucket().One(db, collectibleKey(aliceCond.Address(), 0), &c); err != nil {
					t.Fatalf("collectible: %s", err)
				}
				if !c.Owner.Equals(bobCond.Address()) {
					t.Fatalf("unexpected owner: %q", c.Owner)
				}
				if c.ForSale {
					t.Fatal("must no longer be for sale")
				}
				if !c.Price.IsZero() {
					t.Fatalf("price must be reset after a sale: %q", c.Price)
				}
			},
		},
		"an overpayment stays with the seller": {
			Funds: []AccountBalance{
				{Wallet: charlieCond.Address(), Amount: coin.NewCoin(151, 0, "IOV")},
			},
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &TransferCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							NewOwner:  bobCond.Address(),
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					Now:        now + 3,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &OfferForSaleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(100, 0, "IOV"),
						},
					},
					BlockHeight: 103,
					WantErr:     nil,
				},
				{
					Now:        now + 4,
					Conditions: []weave.Condition{charlieCond},
					Tx: &weavetest.Tx{
						Msg: &BuyCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Buyer:     charlieCond.Address(),
							Payment:   coin.NewCoin(150, 0, "IOV"),
						},
					},
					BlockHeight: 104,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				// The fee is computed from the asking price, not
				// from the payment. The overpayment goes to the
				// seller.
				assertFunds(t, db, bobCond.Address(), coin.NewCoin(148, 0, "IOV"))
				assertFunds(t, db, aliceCond.Address(), coin.NewCoin(2, 0, "IOV"))
				assertFunds(t, db, charlieCond.Address(), coin.NewCoin(1, 0, "IOV"))
			},
		},
		"every bid pays out the fee split and the settlement pays the settler": {
			Funds: []AccountBalance{
				{Wallet: charlieCond.Address(), Amount: coin.NewCoin(300, 0, "IOV")},
				{Wallet: daveCond.Address(), Amount: coin.NewCoin(500, 0, "IOV")},
			},
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &TransferCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							NewOwner:  bobCond.Address(),
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					Now:        now + 3,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &StartAuctionMsg{
							Metadata:      &weave.Metadata{Schema: 1},
							GalleryId:     aliceCond.Address(),
							StartingPrice: coin.NewCoin(100, 0, "IOV"),
							Duration:      asHours(1),
						},
					},
					BlockHeight: 103,
					WantErr:     nil,
				},
				{
					// A bid matching the starting price is not enough.
					Now:        now + 4,
					Conditions: []weave.Condition{charlieCond},
					Tx: &weavetest.Tx{
						Msg: &PlaceBidMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Bidder:    charlieCond.Address(),
							Amount:    coin.NewCoin(100, 0, "IOV"),
						},
					},
					BlockHeight: 104,
					WantErr:     errors.ErrAmount,
				},
				{
					Now:        now + 5,
					Conditions: []weave.Condition{charlieCond},
					Tx: &weavetest.Tx{
						Msg: &PlaceBidMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Bidder:    charlieCond.Address(),
							Amount:    coin.NewCoin(150, 0, "IOV"),
						},
					},
					BlockHeight: 105,
					WantErr:     nil,
				},
				{
					Now:        now + 6,
					Conditions: []weave.Condition{daveCond},
					Tx: &weavetest.Tx{
						Msg: &PlaceBidMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Bidder:    daveCond.Address(),
							Amount:    coin.NewCoin(200, 0, "IOV"),
						},
					},
					BlockHeight: 106,
					WantErr:     nil,
				},
				{
					// Too early to settle.
					Now:        now + 7,
					Conditions: []weave.Condition{charlieCond},
					Tx: &weavetest.Tx{
						Msg: &EndAuctionMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
						},
					},
					BlockHeight: 107,
					WantErr:     errors.ErrState,
				},
				{
					Now:        now.Add(2 * time.Hour),
					Conditions: []weave.Condition{charlieCond},
					Tx: &weavetest.Tx{
						Msg: &EndAuctionMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
						},
					},
					BlockHeight: 108,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				// Each bid locks its amount within the gallery
				// account and additionally pays out the revenue
				// and fee split right away. No refunds are made
				// for outbid participants. The settlement pays
				// the seller once more from the gallery account
				// and hands the fee to whoever settled.
				assertFunds(t, db, aliceCond.Address(), coin.NewCoin(157, 0, "IOV"))
				assertFunds(t, db, bobCond.Address(), coin.NewCoin(539, 0, "IOV"))
				assertFunds(t, db, charlieCond.Address(), coin.NewCoin(4, 0, "IOV"))
				assertFunds(t, db, daveCond.Address(), coin.NewCoin(100, 0, "IOV"))

				var c Collectible
				if err := NewCollectibleBucket().One(db, collectibleKey(aliceCond.Address(), 0), &c); err != nil {
					t.Fatalf("collectible: %s", err)
				}
				if !c.Owner.Equals(daveCond.Address()) {
					t.Fatalf("unexpected owner: %q", c.Owner)
				}
				if c.Auction != nil {
					t.Fatal("auction must be settled")
				}
			},
		},
		"an auction without bids settles without moving funds": {
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &StartAuctionMsg{
							Metadata:      &weave.Metadata{Schema: 1},
							GalleryId:     aliceCond.Address(),
							StartingPrice: coin.NewCoin(100, 0, "IOV"),
							Duration:      asHours(1),
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					// Only one auction at a time.
					Now:        now + 3,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &StartAuctionMsg{
							Metadata:      &weave.Metadata{Schema: 1},
							GalleryId:     aliceCond.Address(),
							StartingPrice: coin.NewCoin(200, 0, "IOV"),
							Duration:      asHours(1),
						},
					},
					BlockHeight: 103,
					WantErr:     errors.ErrState,
				},
				{
					Now:        now.Add(2 * time.Hour),
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &EndAuctionMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
						},
					},
					BlockHeight: 104,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				var c Collectible
				if err := NewCollectibleBucket().One(db, collectibleKey(aliceCond.Address(), 0), &c); err != nil {
					t.Fatalf("collectible: %s", err)
				}
				if !c.Owner.Equals(aliceCond.Address()) {
					t.Fatalf("unexpected owner: %q", c.Owner)
				}
				if c.Auction != nil {
					t.Fatal("auction must be settled")
				}
			},
		},
		"a late bid is accepted until the auction is settled": {
			Funds: []AccountBalance{
				{Wallet: charlieCond.Address(), Amount: coin.NewCoin(300, 0, "IOV")},
			},
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &StartAuctionMsg{
							Metadata:      &weave.Metadata{Schema: 1},
							GalleryId:     aliceCond.Address(),
							StartingPrice: coin.NewCoin(100, 0, "IOV"),
							Duration:      asHours(1),
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					Now:        now.Add(2 * time.Hour),
					Conditions: []weave.Condition{charlieCond},
					Tx: &weavetest.Tx{
						Msg: &PlaceBidMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Bidder:    charlieCond.Address(),
							Amount:    coin.NewCoin(150, 0, "IOV"),
						},
					},
					BlockHeight: 103,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				var c Collectible
				if err := NewCollectibleBucket().One(db, collectibleKey(aliceCond.Address(), 0), &c); err != nil {
					t.Fatalf("collectible: %s", err)
				}
				if c.Auction == nil {
					t.Fatal("auction must be open")
				}
				if !c.Auction.HighestBidder.Equals(charlieCond.Address()) {
					t.Fatalf("unexpected highest bidder: %q", c.Auction.HighestBidder)
				}
				if !c.Auction.HighestBid.Equals(coin.NewCoin(150, 0, "IOV")) {
					t.Fatalf("unexpected highest bid: %q", c.Auction.HighestBid)
				}
			},
		},
		"the seller can bid on their own auction": {
			Funds: []AccountBalance{
				{Wallet: bobCond.Address(), Amount: coin.NewCoin(300, 0, "IOV")},
			},
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &TransferCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							NewOwner:  bobCond.Address(),
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					Now:        now + 3,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &StartAuctionMsg{
							Metadata:      &weave.Metadata{Schema: 1},
							GalleryId:     aliceCond.Address(),
							StartingPrice: coin.NewCoin(100, 0, "IOV"),
							Duration:      asHours(1),
						},
					},
					BlockHeight: 103,
					WantErr:     nil,
				},
				{
					// The seller outbids the starting price. The bid
					// amount is locked and the fee is paid out, the
					// seller revenue flows back to the bidder.
					Now:        now + 4,
					Conditions: []weave.Condition{bobCond},
					Tx: &weavetest.Tx{
						Msg: &PlaceBidMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Bidder:    bobCond.Address(),
							Amount:    coin.NewCoin(150, 0, "IOV"),
						},
					},
					BlockHeight: 104,
					WantErr:     nil,
				},
				{
					Now:        now.Add(2 * time.Hour),
					Conditions: []weave.Condition{charlieCond},
					Tx: &weavetest.Tx{
						Msg: &EndAuctionMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
						},
					},
					BlockHeight: 105,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				// The bid locked 150 IOV within the gallery account
				// and paid the 3 IOV fee. The settlement sees the
				// owner as the highest bidder and closes without a
				// payout, like an auction that received no bids.
				assertFunds(t, db, bobCond.Address(), coin.NewCoin(147, 0, "IOV"))
				assertFunds(t, db, aliceCond.Address(), coin.NewCoin(153, 0, "IOV"))

				var c Collectible
				if err := NewCollectibleBucket().One(db, collectibleKey(aliceCond.Address(), 0), &c); err != nil {
					t.Fatalf("collectible: %s", err)
				}
				if !c.Owner.Equals(bobCond.Address()) {
					t.Fatalf("unexpected owner: %q", c.Owner)
				}
				if c.Auction != nil {
					t.Fatal("auction must be settled")
				}
			},
		},
		"a listing and an auction can run at the same time": {
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &OfferForSaleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(50, 0, "IOV"),
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					// A listed collectible can still be auctioned.
					Now:        now + 3,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &StartAuctionMsg{
							Metadata:      &weave.Metadata{Schema: 1},
							GalleryId:     aliceCond.Address(),
							StartingPrice: coin.NewCoin(100, 0, "IOV"),
							Duration:      asHours(1),
						},
					},
					BlockHeight: 103,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				var c Collectible
				if err := NewCollectibleBucket().One(db, collectibleKey(aliceCond.Address(), 0), &c); err != nil {
					t.Fatalf("collectible: %s", err)
				}
				if !c.ForSale {
					t.Fatal("must still be for sale")
				}
				if !c.Price.Equals(coin.NewCoin(50, 0, "IOV")) {
					t.Fatalf("unexpected price: %q", c.Price)
				}
				if c.Auction == nil {
					t.Fatal("auction must be open")
				}
			},
		},
		"a transfer leaves an open auction behind": {
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Sunset",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &StartAuctionMsg{
							Metadata:      &weave.Metadata{Schema: 1},
							GalleryId:     aliceCond.Address(),
							StartingPrice: coin.NewCoin(100, 0, "IOV"),
							Duration:      asHours(1),
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					// The new owner must be a different account.
					Now:        now + 3,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &TransferCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							NewOwner:  aliceCond.Address(),
						},
					},
					BlockHeight: 103,
					WantErr:     errors.ErrInput,
				},
				{
					Now:        now + 4,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &TransferCollectibleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							NewOwner:  bobCond.Address(),
						},
					},
					BlockHeight: 104,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				var c Collectible
				if err := NewCollectibleBucket().One(db, collectibleKey(aliceCond.Address(), 0), &c); err != nil {
					t.Fatalf("collectible: %s", err)
				}
				if !c.Owner.Equals(bobCond.Address()) {
					t.Fatalf("unexpected owner: %q", c.Owner)
				}
				if c.ForSale {
					t.Fatal("must not be for sale")
				}
				// The auction survives the ownership change. It
				// still names the previous owner as the highest
				// bidder.
				if c.Auction == nil {
					t.Fatal("auction must still be open")
				}
				if !c.Auction.HighestBidder.Equals(aliceCond.Address()) {
					t.Fatalf("unexpected highest bidder: %q", c.Auction.HighestBidder)
				}
			},
		},
		"for sale listings can be scanned with an offset": {
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &CreateGalleryMsg{
							Metadata: &weave.Metadata{Schema: 1},
						},
					},
					BlockHeight: 100,
					WantErr:     nil,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "First",
							Rarity:   "rare",
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
				{
					Now:        now + 2,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Second",
							Rarity:   "common",
						},
					},
					BlockHeight: 102,
					WantErr:     nil,
				},
				{
					Now:        now + 3,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &IssueCollectibleMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Name:     "Third",
							Rarity:   "rare",
						},
					},
					BlockHeight: 103,
					WantErr:     nil,
				},
				{
					Now:        now + 4,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &OfferForSaleMsg{
							Metadata:  &weave.Metadata{Schema: 1},
							GalleryId: aliceCond.Address(),
							Price:     coin.NewCoin(10, 0, "IOV"),
						},
					},
					BlockHeight: 104,
					WantErr:     nil,
				},
				{
					Now:        now + 5,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &OfferForSaleMsg{
							Metadata:      &weave.Metadata{Schema: 1},
							GalleryId:     aliceCond.Address(),
							CollectibleId: 2,
							Price:         coin.NewCoin(30, 0, "IOV"),
						},
					},
					BlockHeight: 105,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				listed := queryForSale(t, db, aliceCond.Address(), 0)
				if len(listed) != 2 {
					t.Fatalf("want 2 listings, got %d", len(listed))
				}
				if listed[0].Name != "First" || listed[1].Name != "Third" {
					t.Fatalf("unexpected listings: %+v", listed)
				}
				listed = queryForSale(t, db, aliceCond.Address(), 1)
				if len(listed) != 1 || listed[0].Name != "Third" {
					t.Fatalf("unexpected listings: %+v", listed)
				}
				// An offset past the registry produces an empty
				// result, not an error.
				listed = queryForSale(t, db, aliceCond.Address(), 5)
				if len(listed) != 0 {
					t.Fatalf("want no listings, got %d", len(listed))
				}
			},
		},
		"only the admin can update the configuration": {
			Requests: []Request{
				{
					Now:        now,
					Conditions: []weave.Condition{aliceCond},
					Tx: &weavetest.Tx{
						Msg: &UpdateConfigurationMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Patch: &Configuration{
								Metadata: &weave.Metadata{Schema: 1},
								Owner:    aliceCond.Address(),
								Admin:    aliceCond.Address(),
							},
						},
					},
					BlockHeight: 100,
					WantErr:     errors.ErrUnauthorized,
				},
				{
					Now:        now + 1,
					Conditions: []weave.Condition{adminCond},
					Tx: &weavetest.Tx{
						Msg: &UpdateConfigurationMsg{
							Metadata: &weave.Metadata{Schema: 1},
							Patch: &Configuration{
								Metadata: &weave.Metadata{Schema: 1},
								Owner:    adminCond.Address(),
								Admin:    bobCond.Address(),
							},
						},
					},
					BlockHeight: 101,
					WantErr:     nil,
				},
			},
			AfterTest: func(t *testing.T, db weave.KVStore) {
				var conf Configuration
				if err := gconf.Load(db, "gallery", &conf); err != nil {
					t.Fatalf("load configuration: %s", err)
				}
				if !conf.Admin.Equals(bobCond.Address()) {
					t.Fatalf("unexpected admin: %q", conf.Admin)
				}
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "gallery", "cash")

			rt := app.NewRouter()
			auth := &weavetest.CtxAuth{Key: "auth"}
			ctrl := cash.NewController(cash.NewBucket())
			RegisterRoutes(rt, auth, ctrl)

			for _, b := range tc.Funds {
				if err := ctrl.CoinMint(db, b.Wallet, b.Amount); err != nil {
					t.Fatalf("cannot mint coins for %q: %s", b.Wallet, err)
				}
			}

			config := Configuration{
				Metadata: &weave.Metadata{Schema: 1},
				Owner:    adminCond.Address(),
				Admin:    adminCond.Address(),
			}
			if err := gconf.Save(db, "gallery", &config); err != nil {
				t.Fatalf("cannot save configuration: %s", err)
			}

			for i, req := range tc.Requests {
				ctx := weave.WithHeight(context.Background(), req.BlockHeight)
				ctx = weave.WithChainID(ctx, "testchain-123")
				ctx = auth.SetConditions(ctx, req.Conditions...)
				ctx = weave.WithBlockTime(ctx, req.Now.Time())

				cache := db.CacheWrap()
				if _, err := rt.Check(ctx, cache, req.Tx); !req.WantErr.Is(err) {
					t.Fatalf("unexpected %d check error: want %q, got %+v", i, req.WantErr, err)
				}
				cache.Discard()
				if _, err := rt.Deliver(ctx, db, req.Tx); !req.WantErr.Is(err) {
					t.Fatalf("unexpected %d deliver error: want %q, got %+v", i, req.WantErr, err)
				}
			}

			if tc.AfterTest != nil {
				tc.AfterTest(t, db)
			}
		})
	}
}

func assertFunds(t testing.TB, db weave.KVStore, wallet weave.Address, funds coin.Coin) {
	t.Helper()

	ctrl := cash.NewController(cash.NewBucket())
	coins, err := ctrl.Balance(db, wallet)
	if err != nil {
		t.Fatalf("balance: %s", err)
	}
	if len(coins) != 1 {
		t.Fatalf("want %q funds, found %d coins: %q", funds, len(coins), coins)
	}
	if !coins[0].Equals(funds) {
		t.Fatalf("unexpected funds found: %q", coins[0])
	}
}

func queryForSale(t testing.TB, db weave.ReadOnlyKVStore, gallery weave.Address, offset int64) []*Collectible {
	t.Helper()

	q := ForSaleQuery{collectibles: NewCollectibleBucket()}
	data := collectibleKey(gallery, offset)
	models, err := q.Query(db, "", data)
	if err != nil {
		t.Fatalf("for sale query: %s", err)
	}
	res := make([]*Collectible, 0, len(models))
	for _, m := range models {
		var c Collectible
		if err := c.Unmarshal(m.Value); err != nil {
			t.Fatalf("unmarshal collectible: %s", err)
		}
		res = append(res, &c)
	}
	return res
}

func asHours(hours int) weave.UnixDuration {
	return weave.AsUnixDuration(time.Duration(hours) * time.Hour)
}
