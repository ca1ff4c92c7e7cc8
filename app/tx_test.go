package app

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/galleryd/x/gallery"
	weave "github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/crypto"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/sigs"
)

func TestTxDecoder(t *testing.T) {
	sender := crypto.GenPrivKeyEd25519()

	msg := &gallery.PlaceBidMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		GalleryId: weavetest.NewCondition().Address(),
		Bidder:    sender.PublicKey().Address(),
		Amount:    coin.NewCoin(100, 0, "IOV"),
	}
	tx := &Tx{
		Fees: &cash.FeeInfo{
			Payer: sender.PublicKey().Address(),
			Fees:  &coin.Coin{Whole: 1, Ticker: "IOV"},
		},
		Sum: &Tx_GalleryPlaceBidMsg{msg},
	}
	sig, err := sigs.SignTx(sender, tx, "testchain-123", 0)
	if err != nil {
		t.Fatalf("sign: %s", err)
	}
	tx.Signatures = []*sigs.StdSignature{sig}

	raw, err := tx.Marshal()
	if err != nil {
		t.Fatalf("marshal: %s", err)
	}

	decoded, err := TxDecoder(raw)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	got, err := decoded.GetMsg()
	if err != nil {
		t.Fatalf("get msg: %s", err)
	}
	bid, ok := got.(*gallery.PlaceBidMsg)
	if !ok {
		t.Fatalf("unexpected message type: %T", got)
	}
	if !bid.Bidder.Equals(msg.Bidder) {
		t.Fatalf("unexpected bidder: %q", bid.Bidder)
	}
	if !bid.Amount.Equals(msg.Amount) {
		t.Fatalf("unexpected amount: %q", bid.Amount)
	}

	stx, ok := decoded.(sigs.SignedTx)
	if !ok {
		t.Fatalf("transaction is not signed: %T", decoded)
	}
	if n := len(stx.GetSignatures()); n != 1 {
		t.Fatalf("want 1 signature, got %d", n)
	}
}

func TestTxMsgPaths(t *testing.T) {
	cases := map[string]struct {
		tx       *Tx
		wantPath string
	}{
		"cash send": {
			tx:       &Tx{Sum: &Tx_CashSendMsg{&cash.SendMsg{}}},
			wantPath: "cash/send",
		},
		"create gallery": {
			tx:       &Tx{Sum: &Tx_GalleryCreateGalleryMsg{&gallery.CreateGalleryMsg{}}},
			wantPath: "gallery/create_gallery",
		},
		"issue collectible": {
			tx:       &Tx{Sum: &Tx_GalleryIssueCollectibleMsg{&gallery.IssueCollectibleMsg{}}},
			wantPath: "gallery/issue_collectible",
		},
		"buy collectible": {
			tx:       &Tx{Sum: &Tx_GalleryBuyCollectibleMsg{&gallery.BuyCollectibleMsg{}}},
			wantPath: "gallery/buy_collectible",
		},
		"end auction": {
			tx:       &Tx{Sum: &Tx_GalleryEndAuctionMsg{&gallery.EndAuctionMsg{}}},
			wantPath: "gallery/end_auction",
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			msg, err := tc.tx.GetMsg()
			if err != nil {
				t.Fatalf("get msg: %s", err)
			}
			if p := msg.Path(); p != tc.wantPath {
				t.Fatalf("unexpected path: %q", p)
			}
		})
	}
}

func TestGenInitOptions(t *testing.T) {
	addr := weavetest.NewCondition().Address()

	raw, err := GenInitOptions([]string{"IOV", addr.String()})
	if err != nil {
		t.Fatalf("generate: %s", err)
	}
	var opts weave.Options
	if err := json.Unmarshal(raw, &opts); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}
	for _, key := range []string{"cash", "gallery", "conf", "initialize_schema"} {
		if opts[key] == nil {
			t.Fatalf("missing %q genesis option", key)
		}
	}

	var galleries []struct {
		Owner weave.Address `json:"owner"`
	}
	if err := opts.ReadOptions("gallery", &galleries); err != nil {
		t.Fatalf("read gallery options: %s", err)
	}
	if len(galleries) != 1 || !galleries[0].Owner.Equals(addr) {
		t.Fatalf("unexpected galleries: %+v", galleries)
	}
}
