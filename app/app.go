/*
Package app links together all the various components
to construct the galleryd app.
*/
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iov-one/galleryd/x/gallery"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/store/iavl"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/sigs"
	"github.com/iov-one/weave/x/utils"
	"github.com/iov-one/weave/x/validators"
)

// Authenticator returns the authentication used by the application.
// Only public key signatures are supported.
func Authenticator() x.Authenticator {
	return sigs.Authenticate{}
}

// CashControl returns a controller for wallet operations.
func CashControl() cash.Controller {
	return cash.NewController(cash.NewBucket())
}

// Chain returns the decorator chain that wraps every handler with
// authentication, fee deduction, logging and panic recovery.
func Chain(minFee coin.Coin, authFn x.Authenticator) app.Decorators {
	return app.ChainDecorators(
		utils.NewLogging(),
		utils.NewRecovery(),
		utils.NewKeyTagger(),
		// on CheckTx, bad tx don't affect state
		utils.NewSavepoint().OnCheck(),
		sigs.NewDecorator(),
		cash.NewFeeDecorator(authFn, CashControl()),
		// on DeliverTx, bad tx will increment nonce and take fee
		// even if the message fails
		utils.NewSavepoint().OnDeliver(),
	)
}

// Router returns the message router, dispatching to the gallery handlers
// as well as cash transfers, schema migrations and validator updates.
func Router(authFn x.Authenticator) *app.Router {
	r := app.NewRouter()
	cash.RegisterRoutes(r, authFn, CashControl())
	migration.RegisterRoutes(r, authFn)
	validators.RegisterRoutes(r, authFn)
	gallery.RegisterRoutes(r, authFn, CashControl())
	return r
}

// QueryRouter returns the query router. Among others it serves "/wallets"
// and "/auth" for the account state and "/galleries", "/collectibles" and
// "/collectibles/forsale" for the marketplace state.
func QueryRouter() weave.QueryRouter {
	r := weave.NewQueryRouter()
	r.RegisterAll(
		migration.RegisterQuery,
		validators.RegisterQuery,
		cash.RegisterQuery,
		sigs.RegisterQuery,
		gallery.RegisterQuery,
		orm.RegisterQuery,
	)
	return r
}

// Stack combines the router with the decorator chain into the handler that
// is given to the base application.
func Stack(minFee coin.Coin) weave.Handler {
	authFn := Authenticator()
	return Chain(minFee, authFn).
		WithHandler(Router(authFn))
}

// Application constructs an ABCI application serving the given handler.
// Stack is the usual choice for the handler.
func Application(name string, h weave.Handler,
	tx weave.TxDecoder, dbPath string, debug bool) (app.BaseApp, error) {

	ctx := context.Background()
	kv, err := CommitKVStore(dbPath)
	if err != nil {
		return app.BaseApp{}, err
	}
	store := app.NewStoreApp(name, kv, QueryRouter(), ctx)
	base := app.NewBaseApp(store, tx, h, nil, debug)
	return base, nil
}

// CommitKVStore returns an initialized KVStore that persists the data under
// the given path. An empty path returns a memory backed store for tests.
func CommitKVStore(dbPath string) (weave.CommitKVStore, error) {
	if dbPath == "" {
		return iavl.MockCommitStore(), nil
	}

	path, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("invalid database name: %s", path)
	}

	// Strip any extension so that "galleryd" and "galleryd.db" name the
	// same store.
	path = strings.TrimSuffix(path, filepath.Ext(path))

	dir := filepath.Dir(path)
	name := filepath.Base(path)
	return iavl.NewCommitStore(dir, name), nil
}
