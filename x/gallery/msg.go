package gallery

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &CreateGalleryMsg{}, migration.NoModification)
	migration.MustRegister(1, &IssueCollectibleMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdatePriceMsg{}, migration.NoModification)
	migration.MustRegister(1, &OfferForSaleMsg{}, migration.NoModification)
	migration.MustRegister(1, &BuyCollectibleMsg{}, migration.NoModification)
	migration.MustRegister(1, &StartAuctionMsg{}, migration.NoModification)
	migration.MustRegister(1, &PlaceBidMsg{}, migration.NoModification)
	migration.MustRegister(1, &EndAuctionMsg{}, migration.NoModification)
	migration.MustRegister(1, &TransferCollectibleMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateConfigurationMsg{}, migration.NoModification)
}

var _ weave.Msg = (*CreateGalleryMsg)(nil)

func (CreateGalleryMsg) Path() string {
	return "gallery/create_gallery"
}

func (m *CreateGalleryMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	return errs
}

var _ weave.Msg = (*IssueCollectibleMsg)(nil)

func (IssueCollectibleMsg) Path() string {
	return "gallery/issue_collectible"
}

func (m *IssueCollectibleMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if len(m.Name) == 0 {
		errs = errors.AppendField(errs, "Name", errors.ErrEmpty)
	}
	if len(m.Rarity) == 0 {
		errs = errors.AppendField(errs, "Rarity", errors.ErrEmpty)
	}
	return errs
}

var _ weave.Msg = (*UpdatePriceMsg)(nil)

func (UpdatePriceMsg) Path() string {
	return "gallery/update_price"
}

func (m *UpdatePriceMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "GalleryId", m.GalleryId.Validate())
	if m.CollectibleId < 0 {
		errs = errors.AppendField(errs, "CollectibleId",
			errors.Wrap(errors.ErrInput, "must not be negative"))
	}
	if err := m.Price.Validate(); err != nil {
		errs = errors.AppendField(errs, "Price", err)
	} else if !m.Price.IsPositive() {
		errs = errors.AppendField(errs, "Price", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	return errs
}

var _ weave.Msg = (*OfferForSaleMsg)(nil)

func (OfferForSaleMsg) Path() string {
	return "gallery/offer_for_sale"
}

func (m *OfferForSaleMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "GalleryId", m.GalleryId.Validate())
	if m.CollectibleId < 0 {
		errs = errors.AppendField(errs, "CollectibleId",
			errors.Wrap(errors.ErrInput, "must not be negative"))
	}
	if err := m.Price.Validate(); err != nil {
		errs = errors.AppendField(errs, "Price", err)
	} else if !m.Price.IsPositive() {
		errs = errors.AppendField(errs, "Price", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	return errs
}

var _ weave.Msg = (*BuyCollectibleMsg)(nil)

func (BuyCollectibleMsg) Path() string {
	return "gallery/buy_collectible"
}

func (m *BuyCollectibleMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "GalleryId", m.GalleryId.Validate())
	if m.CollectibleId < 0 {
		errs = errors.AppendField(errs, "CollectibleId",
			errors.Wrap(errors.ErrInput, "must not be negative"))
	}
	errs = errors.AppendField(errs, "Buyer", m.Buyer.Validate())
	if err := m.Payment.Validate(); err != nil {
		errs = errors.AppendField(errs, "Payment", err)
	} else if !m.Payment.IsPositive() {
		errs = errors.AppendField(errs, "Payment", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	return errs
}

var _ weave.Msg = (*StartAuctionMsg)(nil)

func (StartAuctionMsg) Path() string {
	return "gallery/start_auction"
}

func (m *StartAuctionMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "GalleryId", m.GalleryId.Validate())
	if m.CollectibleId < 0 {
		errs = errors.AppendField(errs, "CollectibleId",
			errors.Wrap(errors.ErrInput, "must not be negative"))
	}
	if err := m.StartingPrice.Validate(); err != nil {
		errs = errors.AppendField(errs, "StartingPrice", err)
	} else if !m.StartingPrice.IsPositive() {
		errs = errors.AppendField(errs, "StartingPrice", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	if m.Duration <= 0 {
		errs = errors.AppendField(errs, "Duration",
			errors.Wrap(errors.ErrInput, "must be greater than zero"))
	}
	return errs
}

var _ weave.Msg = (*PlaceBidMsg)(nil)

func (PlaceBidMsg) Path() string {
	return "gallery/place_bid"
}

func (m *PlaceBidMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "GalleryId", m.GalleryId.Validate())
	if m.CollectibleId < 0 {
		errs = errors.AppendField(errs, "CollectibleId",
			errors.Wrap(errors.ErrInput, "must not be negative"))
	}
	errs = errors.AppendField(errs, "Bidder", m.Bidder.Validate())
	if err := m.Amount.Validate(); err != nil {
		errs = errors.AppendField(errs, "Amount", err)
	} else if !m.Amount.IsPositive() {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	return errs
}

var _ weave.Msg = (*EndAuctionMsg)(nil)

func (EndAuctionMsg) Path() string {
	return "gallery/end_auction"
}

func (m *EndAuctionMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "GalleryId", m.GalleryId.Validate())
	if m.CollectibleId < 0 {
		errs = errors.AppendField(errs, "CollectibleId",
			errors.Wrap(errors.ErrInput, "must not be negative"))
	}
	return errs
}

var _ weave.Msg = (*TransferCollectibleMsg)(nil)

func (TransferCollectibleMsg) Path() string {
	return "gallery/transfer_collectible"
}

func (m *TransferCollectibleMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "GalleryId", m.GalleryId.Validate())
	if m.CollectibleId < 0 {
		errs = errors.AppendField(errs, "CollectibleId",
			errors.Wrap(errors.ErrInput, "must not be negative"))
	}
	errs = errors.AppendField(errs, "NewOwner", m.NewOwner.Validate())
	return errs
}

var _ weave.Msg = (*UpdateConfigurationMsg)(nil)

func (UpdateConfigurationMsg) Path() string {
	return "gallery/update_configuration"
}

func (m *UpdateConfigurationMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if m.Patch == nil {
		errs = errors.AppendField(errs, "Patch", errors.ErrEmpty)
	}
	return errs
}
