package aurum_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/aurum-go/aurum"
)

type User struct {
	ID    uint
	Email string
	Name  string
}

func newTestEngine(t *testing.T) *aurum.Engine {
	t.Helper()
	c, err := aurum.OpenConnection(aurum.ConnectionConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("open connection: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	e, err := aurum.New(nil, aurum.WithConnection(c))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	userType := reflect.TypeOf(User{})
	e.Register(userType, func() *aurum.EntityDescriptor {
		b := aurum.Define(userType, "users")
		b.ID("ID", "id", aurum.Integer, aurum.GenerationAuto)
		b.Field("Email", "email", aurum.String).Length(255)
		b.Field("Name", "name", aurum.String).Length(255)
		return b.Build()
	})

	ctx := context.Background()
	if err := e.Schema().Create(ctx, "users", func(tbl *aurum.SchemaTable) {
		tbl.ID()
		tbl.String("email", 255).NotNull().Unique()
		tbl.String("name", 255).NotNull()
	}); err != nil {
		t.Fatalf("create users table: %v", err)
	}

	return e
}

func TestPersistAndFindReturnsSameInstance(t *testing.T) {
	e := newTestEngine(t)
	session := e.NewSession()
	ctx := context.Background()

	user := &User{Email: "john@example.com", Name: "John Doe"}
	if err := session.Persist(user); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := session.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected a non-zero identifier after flush")
	}

	found, err := session.Find(ctx, reflect.TypeOf(User{}), user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found != interface{}(user) {
		t.Errorf("expected find to return the same in-memory instance, got %+v", found)
	}
}

func TestClearDetachesWithoutIssuingSQL(t *testing.T) {
	e := newTestEngine(t)
	session := e.NewSession()
	ctx := context.Background()

	user := &User{Email: "jane@example.com", Name: "Jane Doe"}
	if err := session.Persist(user); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := session.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	session.Clear()
	if session.Contains(user) {
		t.Fatalf("expected Clear to detach the entity")
	}
}

type Team struct {
	ID      uint
	Name    string
	Members []*Player
}

type Player struct {
	ID    uint
	Name  string
	Teams []*Team
}

func newTeamPlayerEngine(t *testing.T) *aurum.Engine {
	t.Helper()
	c, err := aurum.OpenConnection(aurum.ConnectionConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("open connection: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	e, err := aurum.New(nil, aurum.WithConnection(c))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	teamType := reflect.TypeOf(Team{})
	playerType := reflect.TypeOf(Player{})
	e.Register(teamType, func() *aurum.EntityDescriptor {
		b := aurum.Define(teamType, "teams")
		b.ID("ID", "id", aurum.Integer, aurum.GenerationAuto)
		b.Field("Name", "name", aurum.String).Length(255)
		b.HasManyToMany("Members", playerType, nil)
		return b.Build()
	})
	e.Register(playerType, func() *aurum.EntityDescriptor {
		b := aurum.Define(playerType, "players")
		b.ID("ID", "id", aurum.Integer, aurum.GenerationAuto)
		b.Field("Name", "name", aurum.String).Length(255)
		b.HasManyToManyInverse("Teams", teamType, "Members")
		return b.Build()
	})

	ctx := context.Background()
	if err := e.Schema().Create(ctx, "teams", func(tbl *aurum.SchemaTable) {
		tbl.ID()
		tbl.String("name", 255).NotNull()
	}); err != nil {
		t.Fatalf("create teams table: %v", err)
	}
	if err := e.Schema().Create(ctx, "players", func(tbl *aurum.SchemaTable) {
		tbl.ID()
		tbl.String("name", 255).NotNull()
	}); err != nil {
		t.Fatalf("create players table: %v", err)
	}
	if err := e.Schema().Create(ctx, "teams_players", func(tbl *aurum.SchemaTable) {
		tbl.Integer("teams_id")
		tbl.Integer("players_id")
	}); err != nil {
		t.Fatalf("create teams_players table: %v", err)
	}

	return e
}

func TestAssociationAddRemoveSymmetry(t *testing.T) {
	e := newTeamPlayerEngine(t)
	session := e.NewSession()
	ctx := context.Background()

	team := &Team{Name: "Rockets"}
	player := &Player{Name: "Alex"}
	if err := session.Persist(team); err != nil {
		t.Fatalf("persist team: %v", err)
	}
	if err := session.Persist(player); err != nil {
		t.Fatalf("persist player: %v", err)
	}
	if err := session.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// Adding then removing the same target before a flush must cancel
	// out: no junction row is ever written.
	if err := session.AddAssociation(team, "Members", player.ID); err != nil {
		t.Fatalf("add association: %v", err)
	}
	if err := session.RemoveAssociation(team, "Members", player.ID); err != nil {
		t.Fatalf("remove association: %v", err)
	}
	if err := session.Flush(ctx); err != nil {
		t.Fatalf("flush after cancel-out: %v", err)
	}

	var count int
	if err := e.Connection().DB().QueryRow(`SELECT COUNT(*) FROM teams_players`).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected add+remove before a flush to cancel out, found %d junction rows", count)
	}

	// A bare add is written on the next flush.
	if err := session.AddAssociation(team, "Members", player.ID); err != nil {
		t.Fatalf("add association: %v", err)
	}
	if err := session.Flush(ctx); err != nil {
		t.Fatalf("flush after add: %v", err)
	}
	if err := e.Connection().DB().QueryRow(`SELECT COUNT(*) FROM teams_players WHERE teams_id = ? AND players_id = ?`, team.ID, player.ID).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the junction row to be written after flush, found %d", count)
	}

	// A later remove deletes exactly that row.
	if err := session.RemoveAssociation(team, "Members", player.ID); err != nil {
		t.Fatalf("remove association: %v", err)
	}
	if err := session.Flush(ctx); err != nil {
		t.Fatalf("flush after remove: %v", err)
	}
	if err := e.Connection().DB().QueryRow(`SELECT COUNT(*) FROM teams_players`).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected the junction row to be removed after flush, found %d", count)
	}
}

func TestMigrationsRunThroughEngine(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterMigration(&widgetMigration{aurum.NewBaseMigration("20260101000000", "create widgets")})

	ctx := context.Background()
	if err := e.Migrations().MigrateToLatest(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	status, err := e.Migrations().Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.AppliedCount != 1 {
		t.Fatalf("expected 1 applied migration, got %d", status.AppliedCount)
	}
}

type widgetMigration struct {
	*aurum.BaseMigration
}

func (m *widgetMigration) Up(ctx context.Context, exec aurum.Executor) error {
	_, err := exec.ExecContext(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY)")
	return err
}

func (m *widgetMigration) Down(ctx context.Context, exec aurum.Executor) error {
	_, err := exec.ExecContext(ctx, "DROP TABLE widgets")
	return err
}
