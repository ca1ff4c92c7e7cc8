package gallery

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestGenesisInitializer(t *testing.T) {
	const genesis = `
	{
		"conf": {
			"gallery": {
				"owner": "seq:test/registry/1",
				"admin": "seq:test/admin/1"
			}
		},
		"gallery": [
			{"owner": "seq:test/alice/1"},
			{"owner": "seq:test/bob/1"}
		]
	}
	`

	var opts weave.Options
	if err := json.Unmarshal([]byte(genesis), &opts); err != nil {
		t.Fatalf("cannot unmarshal genesis: %s", err)
	}

	db := store.MemStore()
	migration.MustInitPkg(db, "gallery")

	var ini Initializer
	if err := ini.FromGenesis(opts, weave.GenesisParams{}, db); err != nil {
		t.Fatalf("cannot load genesis: %s", err)
	}

	galleries := NewGalleryBucket()
	alice := weave.NewCondition("test", "alice", weavetest.SequenceID(1)).Address()
	var g Gallery
	if err := galleries.One(db, alice, &g); err != nil {
		t.Fatalf("cannot get alice gallery from the database: %s", err)
	}
	assert.Equal(t, g.Owner, alice)

	var conf Configuration
	if err := gconf.Load(db, "gallery", &conf); err != nil {
		t.Fatalf("cannot load configuration: %s", err)
	}
	assert.Equal(t, conf.Owner, weave.NewCondition("test", "registry", weavetest.SequenceID(1)).Address())
	assert.Equal(t, conf.Admin, weave.NewCondition("test", "admin", weavetest.SequenceID(1)).Address())
}

func TestGenesisInitializerWithoutConfiguration(t *testing.T) {
	// Galleries declared in the genesis must be created even when no
	// gallery configuration is provided.
	const genesis = `
	{
		"gallery": [
			{"owner": "seq:test/alice/1"}
		]
	}
	`

	var opts weave.Options
	if err := json.Unmarshal([]byte(genesis), &opts); err != nil {
		t.Fatalf("cannot unmarshal genesis: %s", err)
	}

	db := store.MemStore()
	migration.MustInitPkg(db, "gallery")

	var ini Initializer
	if err := ini.FromGenesis(opts, weave.GenesisParams{}, db); err != nil {
		t.Fatalf("cannot load genesis: %s", err)
	}

	galleries := NewGalleryBucket()
	alice := weave.NewCondition("test", "alice", weavetest.SequenceID(1)).Address()
	var g Gallery
	if err := galleries.One(db, alice, &g); err != nil {
		t.Fatalf("cannot get alice gallery from the database: %s", err)
	}
	assert.Equal(t, g.Owner, alice)
}
