package hydrate

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aurum-go/aurum/internal/metadata"
	"github.com/aurum-go/aurum/internal/types"
)

type Vehicle struct {
	ID   uint
	Make string
}
type Car struct {
	Vehicle
	Doors int
}

func vehicleDescriptor(reg *metadata.Registry) *metadata.EntityDescriptor {
	b := metadata.Define(reflect.TypeOf(Vehicle{}), "vehicles")
	b.ID("ID", "id", types.Integer, metadata.GenerationAuto)
	b.Field("Make", "make", types.String)
	d := b.Build()
	d.Inheritance, _ = reg.Inheritance(reflect.TypeOf(Vehicle{}))
	return d
}

func carDescriptor(reg *metadata.Registry) *metadata.EntityDescriptor {
	b := metadata.Define(reflect.TypeOf(Car{}), "vehicles")
	b.ID("ID", "id", types.Integer, metadata.GenerationAuto)
	b.Field("Make", "make", types.String)
	b.Field("Doors", "doors", types.Integer)
	d := b.Build()
	d.Inheritance, _ = reg.Inheritance(reflect.TypeOf(Vehicle{}))
	return d
}

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(`CREATE TABLE vehicles (id INTEGER PRIMARY KEY, make TEXT, doors INTEGER, vehicle_type TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestIteratorSelectsConcreteClassByDiscriminator(t *testing.T) {
	reg := metadata.NewRegistry()
	root := reflect.TypeOf(Vehicle{})
	reg.InheritanceRoot(root, metadata.SingleTable, "vehicle_type", 50, "Vehicle")
	if err := reg.InheritanceRegister(root, reflect.TypeOf(Car{}), "Car"); err != nil {
		t.Fatalf("register Car: %v", err)
	}

	db := openMemoryDB(t)
	if _, err := db.Exec(`INSERT INTO vehicles (make, doors, vehicle_type) VALUES ('Toyota', 4, 'Car')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	reg.RegisterFactory(root, func() *metadata.EntityDescriptor { return vehicleDescriptor(reg) })
	reg.RegisterFactory(reflect.TypeOf(Car{}), func() *metadata.EntityDescriptor { return carDescriptor(reg) })

	vehicleDesc, err := reg.Describe(root)
	if err != nil {
		t.Fatalf("describe Vehicle: %v", err)
	}

	rows, err := db.Query(`SELECT id, make, doors, vehicle_type FROM vehicles`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	h := New(vehicleDesc, reg, nil)
	it := h.Stream(rows)
	if !it.Next(context.Background()) {
		t.Fatalf("expected a row, iterator error: %v", it.Err())
	}

	car, ok := it.Entity().(*Car)
	if !ok {
		t.Fatalf("expected *Car, got %T", it.Entity())
	}
	if car.Make != "Toyota" || car.Doors != 4 {
		t.Errorf("unexpected hydration result: %+v", car)
	}
	if it.Next(context.Background()) {
		t.Errorf("expected only one row")
	}
}

type identityMapStub struct {
	stored map[metadata.IdentityKey]interface{}
}

func (s *identityMapStub) Lookup(key metadata.IdentityKey) (interface{}, bool) {
	v, ok := s.stored[key]
	return v, ok
}

func (s *identityMapStub) Register(key metadata.IdentityKey, entity interface{}) {
	s.stored[key] = entity
}

func TestManagedModeReusesLiveInstance(t *testing.T) {
	reg := metadata.NewRegistry()
	class := reflect.TypeOf(Vehicle{})
	reg.RegisterFactory(class, func() *metadata.EntityDescriptor { return vehicleDescriptor(reg) })
	desc, err := reg.Describe(class)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}

	db := openMemoryDB(t)
	if _, err := db.Exec(`INSERT INTO vehicles (make) VALUES ('Honda')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	resolver := &identityMapStub{stored: make(map[metadata.IdentityKey]interface{})}
	existing := &Vehicle{ID: 1, Make: "Already Managed"}
	resolver.Register(metadata.IdentityKey{RootClass: class, ID: int64(1)}, existing)

	rows, err := db.Query(`SELECT id, make FROM vehicles`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	h := New(desc, reg, resolver)
	it := h.Stream(rows)
	if !it.Next(context.Background()) {
		t.Fatalf("expected a row, iterator error: %v", it.Err())
	}

	if it.Entity() != existing {
		t.Errorf("expected managed hydration to reuse the existing identity-mapped instance")
	}
}
