package metadata

import (
	"reflect"
	"testing"

	"github.com/aurum-go/aurum/internal/types"
)

type User struct {
	ID    uint
	Email string
	Name  string
}

func userDescriptor() *EntityDescriptor {
	b := Define(reflect.TypeOf(User{}), "users")
	b.ID("ID", "id", types.Integer, GenerationAuto)
	b.Field("Email", "email", types.String).Length(255)
	b.Field("Name", "name", types.String).Length(255)
	return b.Build()
}

func TestDescribeCachesAndIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory(reflect.TypeOf(User{}), userDescriptor)

	d1, err := r.Describe(reflect.TypeOf(User{}))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	d2, err := r.Describe(reflect.TypeOf(&User{}))
	if err != nil {
		t.Fatalf("Describe (pointer type): %v", err)
	}
	if d1 != d2 {
		t.Errorf("expected the same cached descriptor instance for value and pointer types")
	}
}

func TestMissingIdentifierIsFatal(t *testing.T) {
	r := NewRegistry()
	type NoID struct{ Name string }
	r.RegisterFactory(reflect.TypeOf(NoID{}), func() *EntityDescriptor {
		return &EntityDescriptor{Class: reflect.TypeOf(NoID{}), TableName: "no_ids"}
	})

	if _, err := r.Describe(reflect.TypeOf(NoID{})); err == nil {
		t.Errorf("expected an error for a class with no identifier field")
	}
}

type Vehicle struct {
	ID   uint
	Make string
}
type Car struct{ Vehicle }
type Motorcycle struct{ Vehicle }

func TestInheritanceRegisterDetectsAmbiguousDiscriminator(t *testing.T) {
	r := NewRegistry()
	root := reflect.TypeOf(Vehicle{})
	r.InheritanceRoot(root, SingleTable, "vehicle_type", 50, "Vehicle")

	if err := r.InheritanceRegister(root, reflect.TypeOf(Car{}), "Car"); err != nil {
		t.Fatalf("register Car: %v", err)
	}
	if err := r.InheritanceRegister(root, reflect.TypeOf(Car{}), "Car"); err != nil {
		t.Errorf("re-registering the same (root, child, value) should be idempotent, got %v", err)
	}
	if err := r.InheritanceRegister(root, reflect.TypeOf(Motorcycle{}), "Car"); err == nil {
		t.Errorf("expected an error when a sibling reuses a discriminator value")
	}
}

func TestAllDiscriminatorValuesIncludesRootFirst(t *testing.T) {
	r := NewRegistry()
	root := reflect.TypeOf(Vehicle{})
	desc := r.InheritanceRoot(root, SingleTable, "vehicle_type", 50, "Vehicle")

	if err := r.InheritanceRegister(root, reflect.TypeOf(Car{}), "Car"); err != nil {
		t.Fatalf("register Car: %v", err)
	}
	if err := r.InheritanceRegister(root, reflect.TypeOf(Motorcycle{}), "Motorcycle"); err != nil {
		t.Fatalf("register Motorcycle: %v", err)
	}

	values := desc.AllDiscriminatorValues()
	if len(values) != 3 || values[0] != "Vehicle" {
		t.Errorf("expected root value first among 3 values, got %v", values)
	}
}

func TestJoinedInheritanceIsRejectedNotGuessed(t *testing.T) {
	r := NewRegistry()
	root := reflect.TypeOf(Vehicle{})
	r.InheritanceRoot(root, Joined, "vehicle_type", 50, "Vehicle")

	if err := r.InheritanceRegister(root, reflect.TypeOf(Car{}), "Car"); err == nil {
		t.Errorf("expected joined inheritance to be rejected with a clear error")
	}
}

func TestDefaultJoinTableNaming(t *testing.T) {
	jt := DefaultJoinTable("users", "roles")
	if jt.TableName != "users_roles" || jt.OwnerColumn != "users_id" || jt.InverseColumn != "roles_id" {
		t.Errorf("unexpected default join table shape: %+v", jt)
	}
}

func TestFieldAccessorRoundTrip(t *testing.T) {
	d := userDescriptor()
	u := &User{Email: "john@example.com"}
	ev := reflect.ValueOf(u).Elem()

	field, ok := d.FieldByName("Email")
	if !ok {
		t.Fatalf("expected Email field")
	}

	got := field.Get(ev)
	if got != "john@example.com" {
		t.Errorf("expected john@example.com, got %v", got)
	}

	field.Set(ev, "jane@example.com")
	if u.Email != "jane@example.com" {
		t.Errorf("expected Set to update the struct field, got %v", u.Email)
	}
}

func TestColumnNamesIncludesDiscriminator(t *testing.T) {
	d := userDescriptor()
	d.Inheritance = &InheritanceDescriptor{DiscriminatorColumn: "user_type"}

	names := d.ColumnNames()
	found := false
	for _, n := range names {
		if n == "user_type" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected discriminator column in ColumnNames, got %v", names)
	}

	fieldName, ok := d.FieldNameForColumn("user_type")
	if !ok || fieldName != "__discriminator" {
		t.Errorf("expected __discriminator for the discriminator column, got %q, %v", fieldName, ok)
	}
}
