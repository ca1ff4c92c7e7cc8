package gallery

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"
)

// saleFeePercent is the cut of every settlement that goes to the
// marketplace. It applies to direct sales and to auctions.
const saleFeePercent = 2

func RegisterQuery(qr weave.QueryRouter) {
	NewGalleryBucket().Register("galleries", qr)
	NewCollectibleBucket().Register("collectibles", qr)
	qr.Register("/collectibles/forsale", &ForSaleQuery{
		collectibles: NewCollectibleBucket(),
	})
}

func RegisterRoutes(r weave.Registry, auth x.Authenticator, cashctrl cash.Controller) {
	r = migration.SchemaMigratingRegistry("gallery", r)

	galleries := NewGalleryBucket()
	collectibles := NewCollectibleBucket()

	r.Handle(&CreateGalleryMsg{}, &createGalleryHandler{
		auth:      auth,
		galleries: galleries,
	})
	r.Handle(&IssueCollectibleMsg{}, &issueCollectibleHandler{
		auth:         auth,
		galleries:    galleries,
		collectibles: collectibles,
	})
	r.Handle(&UpdatePriceMsg{}, &updatePriceHandler{
		auth:         auth,
		collectibles: collectibles,
	})
	r.Handle(&OfferForSaleMsg{}, &offerForSaleHandler{
		auth:         auth,
		collectibles: collectibles,
	})
	r.Handle(&BuyCollectibleMsg{}, &buyCollectibleHandler{
		auth:         auth,
		collectibles: collectibles,
		cashctrl:     cashctrl,
	})
	r.Handle(&StartAuctionMsg{}, &startAuctionHandler{
		auth:         auth,
		collectibles: collectibles,
	})
	r.Handle(&PlaceBidMsg{}, &placeBidHandler{
		auth:         auth,
		collectibles: collectibles,
		cashctrl:     cashctrl,
	})
	r.Handle(&EndAuctionMsg{}, &endAuctionHandler{
		auth:         auth,
		collectibles: collectibles,
		cashctrl:     cashctrl,
	})
	r.Handle(&TransferCollectibleMsg{}, &transferCollectibleHandler{
		auth:         auth,
		collectibles: collectibles,
	})
	r.Handle(&UpdateConfigurationMsg{},
		gconf.NewUpdateConfigurationHandler("gallery", &Configuration{}, auth, migration.CurrentAdmin))
}

// saleFee returns the marketplace cut of the given settlement price. The
// remainder after division is left with the seller, so the fee is rounded
// down to the smallest coin fraction.
func saleFee(price coin.Coin) (coin.Coin, error) {
	total, err := price.Multiply(saleFeePercent)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "multiply price")
	}
	fee, _, err := total.Divide(100)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "divide price")
	}
	return fee, nil
}

type createGalleryHandler struct {
	auth      x.Authenticator
	galleries orm.ModelBucket
}

func (h *createGalleryHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *createGalleryHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	owner, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	gallery := Gallery{
		Metadata: &weave.Metadata{Schema: 1},
		Owner:    owner,
	}
	key, err := h.galleries.Put(db, owner, &gallery)
	if err != nil {
		return nil, errors.Wrap(err, "store gallery")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *createGalleryHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (weave.Address, error) {
	var msg CreateGalleryMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	signer := x.AnySigner(ctx, h.auth)
	if signer == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "signer required")
	}
	owner := signer.Address()
	switch err := h.galleries.Has(db, owner); {
	case err == nil:
		return nil, errors.Wrap(errors.ErrDuplicate, "gallery exists")
	case errors.ErrNotFound.Is(err):
		// All good, this is the first gallery of this account.
	default:
		return nil, errors.Wrap(err, "gallery lookup")
	}
	return owner, nil
}

type issueCollectibleHandler struct {
	auth         x.Authenticator
	galleries    orm.ModelBucket
	collectibles orm.ModelBucket
}

func (h *issueCollectibleHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *issueCollectibleHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, gallery, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	key := collectibleKey(gallery.Owner, gallery.Collectibles)
	collectible := Collectible{
		Metadata:    &weave.Metadata{Schema: 1},
		Owner:       gallery.Owner,
		Name:        msg.Name,
		Description: msg.Description,
		Uri:         msg.Uri,
		Rarity:      msg.Rarity,
	}
	if _, err := h.collectibles.Put(db, key, &collectible); err != nil {
		return nil, errors.Wrap(err, "store collectible")
	}
	gallery.Collectibles++
	if _, err := h.galleries.Put(db, gallery.Owner, gallery); err != nil {
		return nil, errors.Wrap(err, "update gallery")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *issueCollectibleHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*IssueCollectibleMsg, *Gallery, error) {
	var msg IssueCollectibleMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	signer := x.AnySigner(ctx, h.auth)
	if signer == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "signer required")
	}
	var gallery Gallery
	if err := h.galleries.One(db, signer.Address(), &gallery); err != nil {
		return nil, nil, errors.Wrap(err, "gallery")
	}
	return &msg, &gallery, nil
}

type updatePriceHandler struct {
	auth         x.Authenticator
	collectibles orm.ModelBucket
}

func (h *updatePriceHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *updatePriceHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, collectible, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	collectible.Price = msg.Price
	key := collectibleKey(msg.GalleryId, msg.CollectibleId)
	if _, err := h.collectibles.Put(db, key, collectible); err != nil {
		return nil, errors.Wrap(err, "store collectible")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *updatePriceHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*UpdatePriceMsg, *Collectible, error) {
	var msg UpdatePriceMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var collectible Collectible
	if err := h.collectibles.One(db, collectibleKey(msg.GalleryId, msg.CollectibleId), &collectible); err != nil {
		return nil, nil, errors.Wrap(err, "collectible")
	}
	if !h.auth.HasAddress(ctx, collectible.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner signature missing")
	}
	return &msg, &collectible, nil
}

type offerForSaleHandler struct {
	auth         x.Authenticator
	collectibles orm.ModelBucket
}

func (h *offerForSaleHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *offerForSaleHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, collectible, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	collectible.ForSale = true
	collectible.Price = msg.Price
	key := collectibleKey(msg.GalleryId, msg.CollectibleId)
	if _, err := h.collectibles.Put(db, key, collectible); err != nil {
		return nil, errors.Wrap(err, "store collectible")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *offerForSaleHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*OfferForSaleMsg, *Collectible, error) {
	var msg OfferForSaleMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var collectible Collectible
	if err := h.collectibles.One(db, collectibleKey(msg.GalleryId, msg.CollectibleId), &collectible); err != nil {
		return nil, nil, errors.Wrap(err, "collectible")
	}
	if !h.auth.HasAddress(ctx, collectible.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner signature missing")
	}
	if collectible.ForSale {
		return nil, nil, errors.Wrap(errors.ErrState, "already offered for sale")
	}
	return &msg, &collectible, nil
}

type buyCollectibleHandler struct {
	auth         x.Authenticator
	collectibles orm.ModelBucket
	cashctrl     cash.Controller
}

func (h *buyCollectibleHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *buyCollectibleHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, collectible, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	fee, err := saleFee(collectible.Price)
	if err != nil {
		return nil, errors.Wrap(err, "sale fee")
	}
	// Whatever the buyer paid above the fee goes to the seller. An
	// overpayment is a tip, not a change to return.
	revenue, err := msg.Payment.Subtract(fee)
	if err != nil {
		return nil, errors.Wrap(err, "seller revenue")
	}
	if err := cash.MoveCoins(db, h.cashctrl, msg.Buyer, collectible.Owner, []*coin.Coin{&revenue}); err != nil {
		return nil, errors.Wrap(err, "pay seller")
	}
	if !fee.IsZero() {
		if err := cash.MoveCoins(db, h.cashctrl, msg.Buyer, msg.GalleryId, []*coin.Coin{&fee}); err != nil {
			return nil, errors.Wrap(err, "pay marketplace fee")
		}
	}
	collectible.Owner = msg.Buyer
	collectible.ForSale = false
	collectible.Price = coin.Coin{}
	key := collectibleKey(msg.GalleryId, msg.CollectibleId)
	if _, err := h.collectibles.Put(db, key, collectible); err != nil {
		return nil, errors.Wrap(err, "store collectible")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *buyCollectibleHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*BuyCollectibleMsg, *Collectible, error) {
	var msg BuyCollectibleMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Buyer) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "buyer signature missing")
	}
	var collectible Collectible
	if err := h.collectibles.One(db, collectibleKey(msg.GalleryId, msg.CollectibleId), &collectible); err != nil {
		return nil, nil, errors.Wrap(err, "collectible")
	}
	if !collectible.ForSale {
		return nil, nil, errors.Wrap(errors.ErrState, "not offered for sale")
	}
	if !msg.Payment.SameType(collectible.Price) {
		return nil, nil, errors.Wrap(errors.ErrCurrency, "payment currency")
	}
	if !msg.Payment.IsGTE(collectible.Price) {
		return nil, nil, errors.Wrap(errors.ErrAmount, "payment below asking price")
	}
	return &msg, &collectible, nil
}

type startAuctionHandler struct {
	auth         x.Authenticator
	collectibles orm.ModelBucket
}

func (h *startAuctionHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *startAuctionHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, collectible, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "block time")
	}
	collectible.Auction = &Auction{
		CollectibleId: msg.CollectibleId,
		StartingPrice: msg.StartingPrice,
		// Until the first bid arrives the owner is the highest bidder.
		// No funds are moved for this placeholder bid.
		HighestBid:    msg.StartingPrice,
		HighestBidder: collectible.Owner,
		Timeout:       weave.AsUnixTime(now.Add(msg.Duration.Duration())),
	}
	key := collectibleKey(msg.GalleryId, msg.CollectibleId)
	if _, err := h.collectibles.Put(db, key, collectible); err != nil {
		return nil, errors.Wrap(err, "store collectible")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *startAuctionHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*StartAuctionMsg, *Collectible, error) {
	var msg StartAuctionMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var collectible Collectible
	if err := h.collectibles.One(db, collectibleKey(msg.GalleryId, msg.CollectibleId), &collectible); err != nil {
		return nil, nil, errors.Wrap(err, "collectible")
	}
	if !h.auth.HasAddress(ctx, collectible.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner signature missing")
	}
	if collectible.Auction != nil {
		return nil, nil, errors.Wrap(errors.ErrState, "auction exists")
	}
	return &msg, &collectible, nil
}

type placeBidHandler struct {
	auth         x.Authenticator
	collectibles orm.ModelBucket
	cashctrl     cash.Controller
}

func (h *placeBidHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *placeBidHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, collectible, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	// Lock the bid within the gallery account. Outbid participants are
	// not refunded here but when the auction is settled.
	if err := cash.MoveCoins(db, h.cashctrl, msg.Bidder, msg.GalleryId, []*coin.Coin{&msg.Amount}); err != nil {
		return nil, errors.Wrap(err, "lock bid")
	}
	fee, err := saleFee(msg.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "sale fee")
	}
	revenue, err := msg.Amount.Subtract(fee)
	if err != nil {
		return nil, errors.Wrap(err, "seller revenue")
	}
	if err := cash.MoveCoins(db, h.cashctrl, msg.Bidder, collectible.Owner, []*coin.Coin{&revenue}); err != nil {
		return nil, errors.Wrap(err, "pay seller")
	}
	if !fee.IsZero() {
		if err := cash.MoveCoins(db, h.cashctrl, msg.Bidder, msg.GalleryId, []*coin.Coin{&fee}); err != nil {
			return nil, errors.Wrap(err, "pay marketplace fee")
		}
	}
	collectible.Auction.HighestBid = msg.Amount
	collectible.Auction.HighestBidder = msg.Bidder
	key := collectibleKey(msg.GalleryId, msg.CollectibleId)
	if _, err := h.collectibles.Put(db, key, collectible); err != nil {
		return nil, errors.Wrap(err, "store collectible")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *placeBidHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*PlaceBidMsg, *Collectible, error) {
	var msg PlaceBidMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Bidder) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "bidder signature missing")
	}
	var collectible Collectible
	if err := h.collectibles.One(db, collectibleKey(msg.GalleryId, msg.CollectibleId), &collectible); err != nil {
		return nil, nil, errors.Wrap(err, "collectible")
	}
	auction := collectible.Auction
	if auction == nil {
		return nil, nil, errors.Wrap(errors.ErrState, "no open auction")
	}
	if !msg.Amount.SameType(auction.HighestBid) {
		return nil, nil, errors.Wrap(errors.ErrCurrency, "bid currency")
	}
	// A bid must beat the current highest bid, matching it is not enough.
	// The auction timeout does not reject late bids. Bids are accepted
	// until the auction is settled.
	if msg.Amount.Compare(auction.HighestBid) <= 0 {
		return nil, nil, errors.Wrap(errors.ErrAmount, "bid below highest bid")
	}
	return &msg, &collectible, nil
}

type endAuctionHandler struct {
	auth         x.Authenticator
	collectibles orm.ModelBucket
	cashctrl     cash.Controller
}

func (h *endAuctionHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *endAuctionHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, collectible, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	auction := collectible.Auction
	// The owner as the highest bidder means no outside bid was placed.
	// Nothing is paid out then.
	if !auction.HighestBidder.Equals(collectible.Owner) {
		fee, err := saleFee(auction.HighestBid)
		if err != nil {
			return nil, errors.Wrap(err, "sale fee")
		}
		revenue, err := auction.HighestBid.Subtract(fee)
		if err != nil {
			return nil, errors.Wrap(err, "seller revenue")
		}
		if err := cash.MoveCoins(db, h.cashctrl, msg.GalleryId, collectible.Owner, []*coin.Coin{&revenue}); err != nil {
			return nil, errors.Wrap(err, "pay seller")
		}
		if !fee.IsZero() {
			// The fee is released to whoever settled the auction.
			caller := x.AnySigner(ctx, h.auth).Address()
			if err := cash.MoveCoins(db, h.cashctrl, msg.GalleryId, caller, []*coin.Coin{&fee}); err != nil {
				return nil, errors.Wrap(err, "pay settlement fee")
			}
		}
		collectible.Owner = auction.HighestBidder
	}
	collectible.ForSale = false
	collectible.Auction = nil
	key := collectibleKey(msg.GalleryId, msg.CollectibleId)
	if _, err := h.collectibles.Put(db, key, collectible); err != nil {
		return nil, errors.Wrap(err, "store collectible")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *endAuctionHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*EndAuctionMsg, *Collectible, error) {
	var msg EndAuctionMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if x.AnySigner(ctx, h.auth) == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "signer required")
	}
	var collectible Collectible
	if err := h.collectibles.One(db, collectibleKey(msg.GalleryId, msg.CollectibleId), &collectible); err != nil {
		return nil, nil, errors.Wrap(err, "collectible")
	}
	if collectible.Auction == nil {
		return nil, nil, errors.Wrap(errors.ErrState, "no open auction")
	}
	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "block time")
	}
	if now.Before(collectible.Auction.Timeout.Time()) {
		return nil, nil, errors.Wrap(errors.ErrState, "auction still running")
	}
	return &msg, &collectible, nil
}

type transferCollectibleHandler struct {
	auth         x.Authenticator
	collectibles orm.ModelBucket
}

func (h *transferCollectibleHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: 0}, nil
}

func (h *transferCollectibleHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, collectible, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	collectible.Owner = msg.NewOwner
	collectible.ForSale = false
	collectible.Price = coin.Coin{}
	key := collectibleKey(msg.GalleryId, msg.CollectibleId)
	if _, err := h.collectibles.Put(db, key, collectible); err != nil {
		return nil, errors.Wrap(err, "store collectible")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *transferCollectibleHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*TransferCollectibleMsg, *Collectible, error) {
	var msg TransferCollectibleMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var collectible Collectible
	if err := h.collectibles.One(db, collectibleKey(msg.GalleryId, msg.CollectibleId), &collectible); err != nil {
		return nil, nil, errors.Wrap(err, "collectible")
	}
	if !h.auth.HasAddress(ctx, collectible.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner signature missing")
	}
	if msg.NewOwner.Equals(collectible.Owner) {
		return nil, nil, errors.Wrap(errors.ErrInput, "new owner must differ")
	}
	return &msg, &collectible, nil
}
