// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/agglomerate"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/config"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/ingest"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// testDBSemaphore serializes DuckDB tests: concurrent CGO calls from many
// in-memory databases stall under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory DuckDB with the spatial extension. The
// test is skipped when the extension cannot be installed (offline CI).
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{
		Driver:             config.DriverDuckDB,
		Path:               ":memory:",
		MaxMemory:          "512MB",
		ExtensionTimeout:   30 * time.Second,
		TransactionRetries: 3,
		BreakerFailures:    5,
		BreakerTimeout:     time.Minute,
	})
	if errors.Is(err, ErrSpatialUnavailable) {
		t.Skipf("spatial extension unavailable: %v", err)
	}
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { closeQuietly(db) })
	return db
}

func square(id string, x, y float64) models.Detection {
	return models.Detection{
		ID:         models.ExternalID(id),
		WKT:        fmt.Sprintf("POLYGON ((%[1]g %[2]g, %[3]g %[2]g, %[3]g %[4]g, %[1]g %[4]g, %[1]g %[2]g))", x, y, x+1, y+1),
		XSCentroid: x + 0.5,
		YSCentroid: y + 0.5,
		SizePx:     1,
	}
}

// fixture is a workflow with slices a, b at tile (0,0,0) and c at (0,0,1),
// all agglomerated into one object.
type fixture struct {
	wf      models.Workflow
	a, b, c models.SliceID
	object  models.ObjectID
}

func seedSlices(t *testing.T, db *DB) fixture {
	t.Helper()
	ctx := context.Background()

	wf, err := db.GetOrCreateWorkflow(ctx, 1, models.TileSize{HeightPx: 512, WidthPx: 512}, "det-1", nil)
	if err != nil {
		t.Fatalf("GetOrCreateWorkflow: %v", err)
	}
	ing := ingest.NewService(db, ingest.Options{})
	engine := agglomerate.NewEngine(db, 1.1)

	first, err := ing.InsertSlices(ctx, models.TileKey{WorkflowID: wf.ID, TileIndex: models.TileIndex{X: 0, Y: 0, Z: 0}},
		[]models.Detection{square("a", 0, 0), square("b", 1, 0)}, nil)
	if err != nil {
		t.Fatalf("InsertSlices: %v", err)
	}
	res, err := engine.Agglomerate(ctx, []models.SliceID{first["a"], first["b"]})
	if err != nil {
		t.Fatalf("Agglomerate: %v", err)
	}
	obj := res.Mappings[first["a"]]
	if obj == 0 || res.Mappings[first["b"]] != obj {
		t.Fatalf("touching slices should share an object: %v", res.Mappings)
	}

	second, err := ing.InsertSlices(ctx, models.TileKey{WorkflowID: wf.ID, TileIndex: models.TileIndex{X: 0, Y: 0, Z: 1}},
		[]models.Detection{square("c", 0.5, 0)}, nil)
	if err != nil {
		t.Fatalf("InsertSlices: %v", err)
	}
	res, err = engine.Agglomerate(ctx, []models.SliceID{second["c"]})
	if err != nil {
		t.Fatalf("Agglomerate: %v", err)
	}
	for _, id := range []models.SliceID{first["a"], first["b"], second["c"]} {
		if got := res.Mappings[id]; got != obj {
			t.Errorf("slice %d -> object %d, want %d", id, got, obj)
		}
	}
	if len(res.Deleted) != 0 {
		t.Errorf("Deleted = %v, want none", res.Deleted)
	}
	return fixture{wf: wf, a: first["a"], b: first["b"], c: second["c"], object: obj}
}

func TestAgglomerationEndToEnd(t *testing.T) {
	db := setupTestDB(t)
	seedSlices(t, db)
}

func TestAgglomerateRemovesOrphans(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fx := seedSlices(t, db)

	var orphan int64
	if err := db.conn.QueryRowContext(ctx, `INSERT INTO synapse_object (version) VALUES (0) RETURNING id`).Scan(&orphan); err != nil {
		t.Fatalf("insert orphan: %v", err)
	}

	res, err := agglomerate.NewEngine(db, 1.1).Agglomerate(ctx, nil)
	if err != nil {
		t.Fatalf("Agglomerate: %v", err)
	}
	if len(res.Deleted) != 1 || res.Deleted[0] != models.ObjectID(orphan) {
		t.Errorf("Deleted = %v, want [%d]", res.Deleted, orphan)
	}
	if len(res.Mappings) != 0 {
		t.Errorf("Mappings = %v, want empty", res.Mappings)
	}

	geoms, err := db.SliceGeometries(ctx, fx.wf.ID, []models.ObjectID{fx.object})
	if err != nil {
		t.Fatalf("SliceGeometries: %v", err)
	}
	if len(geoms) != 3 {
		t.Errorf("object %d has %d slices after sweep, want 3", fx.object, len(geoms))
	}
}

// checkBridgeMerge agglomerates two distant slices into separate objects,
// then bridges them with a slice on the next section. The lower object must
// absorb every slice and the higher one must be deleted.
func checkBridgeMerge(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	wf, err := db.GetOrCreateWorkflow(ctx, 1, models.TileSize{HeightPx: 512, WidthPx: 512}, "det-bridge", nil)
	if err != nil {
		t.Fatalf("GetOrCreateWorkflow: %v", err)
	}
	ing := ingest.NewService(db, ingest.Options{})
	engine := agglomerate.NewEngine(db, 1.1)

	apart, err := ing.InsertSlices(ctx, models.TileKey{WorkflowID: wf.ID, TileIndex: models.TileIndex{X: 0, Y: 0, Z: 0}},
		[]models.Detection{square("left", 0, 0), square("right", 3, 0)}, nil)
	if err != nil {
		t.Fatalf("InsertSlices: %v", err)
	}
	left, right := apart["left"], apart["right"]
	res, err := engine.Agglomerate(ctx, []models.SliceID{left, right})
	if err != nil {
		t.Fatalf("Agglomerate: %v", err)
	}
	low, high := res.Mappings[left], res.Mappings[right]
	if low == 0 || high == 0 || low == high {
		t.Fatalf("distant slices should get separate objects: %v", res.Mappings)
	}
	if low > high {
		low, high = high, low
	}

	bridged, err := ing.InsertSlices(ctx, models.TileKey{WorkflowID: wf.ID, TileIndex: models.TileIndex{X: 0, Y: 0, Z: 1}},
		[]models.Detection{square("bridge", 1.5, 0)}, nil)
	if err != nil {
		t.Fatalf("InsertSlices: %v", err)
	}
	bridge := bridged["bridge"]
	res, err = engine.Agglomerate(ctx, []models.SliceID{bridge})
	if err != nil {
		t.Fatalf("Agglomerate: %v", err)
	}

	for _, id := range []models.SliceID{left, right, bridge} {
		if got := res.Mappings[id]; got != low {
			t.Errorf("slice %d -> object %d, want %d", id, got, low)
		}
	}
	if len(res.Deleted) != 1 || res.Deleted[0] != high {
		t.Errorf("Deleted = %v, want [%d]", res.Deleted, high)
	}

	dupes, err := queryAndScan(ctx, db.conn, `
SELECT synapse_slice_id FROM synapse_slice_synapse_object
GROUP BY 1 HAVING COUNT(*) > 1`, nil, scanInt64)
	if err != nil {
		t.Fatalf("duplicate mapping query: %v", err)
	}
	if len(dupes) != 0 {
		t.Errorf("slices with more than one mapping row: %v", dupes)
	}

	var mappings, sliceCount int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM synapse_slice_synapse_object`).Scan(&mappings); err != nil {
		t.Fatalf("count mappings: %v", err)
	}
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM synapse_slice`).Scan(&sliceCount); err != nil {
		t.Fatalf("count slices: %v", err)
	}
	if mappings != sliceCount || sliceCount != 3 {
		t.Errorf("%d mapping rows for %d slices, want 3 each", mappings, sliceCount)
	}

	var objects int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM synapse_object WHERE id = $1`, int64(high)).Scan(&objects); err != nil {
		t.Fatalf("count objects: %v", err)
	}
	if objects != 0 {
		t.Errorf("object %d still exists after merge", high)
	}
}

func TestAgglomerateMergesBridgedObjects(t *testing.T) {
	db := setupTestDB(t)
	checkBridgeMerge(t, db)
}

func TestAgglomerateUnknownSeed(t *testing.T) {
	db := setupTestDB(t)
	_, err := agglomerate.NewEngine(db, 1.1).Agglomerate(context.Background(), []models.SliceID{424242})
	if !errors.Is(err, agglomerate.ErrSliceNotFound) {
		t.Fatalf("err = %v, want ErrSliceNotFound", err)
	}
}

func TestWorkflowGetOrCreateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	size := models.TileSize{HeightPx: 256, WidthPx: 512}

	first, err := db.GetOrCreateWorkflow(ctx, 3, size, "hash-a", nil)
	if err != nil {
		t.Fatalf("GetOrCreateWorkflow: %v", err)
	}
	again, err := db.GetOrCreateWorkflow(ctx, 3, size, "hash-a", nil)
	if err != nil {
		t.Fatalf("GetOrCreateWorkflow: %v", err)
	}
	if first != again {
		t.Errorf("second call = %+v, want %+v", again, first)
	}
	other, err := db.GetOrCreateWorkflow(ctx, 3, size, "hash-b", nil)
	if err != nil {
		t.Fatalf("GetOrCreateWorkflow: %v", err)
	}
	if other.ID == first.ID {
		t.Error("a new algorithm must create a new workflow")
	}

	loaded, err := db.Workflow(ctx, first.ID)
	if err != nil {
		t.Fatalf("Workflow: %v", err)
	}
	if loaded != first {
		t.Errorf("Workflow = %+v, want %+v", loaded, first)
	}
	if _, err := db.Workflow(ctx, 999); !errors.Is(err, models.ErrWorkflowNotFound) {
		t.Errorf("unknown workflow err = %v", err)
	}
}

func TestTiles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fx := seedSlices(t, db)

	detected, err := db.DetectedTiles(ctx, fx.wf.ID)
	if err != nil {
		t.Fatalf("DetectedTiles: %v", err)
	}
	want := []models.TileIndex{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}}
	if len(detected) != len(want) || detected[0] != want[0] || detected[1] != want[1] {
		t.Errorf("DetectedTiles = %v, want %v", detected, want)
	}

	undetected, err := db.UndetectedTiles(ctx, fx.wf.ID, []models.TileIndex{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 0}})
	if err != nil {
		t.Fatalf("UndetectedTiles: %v", err)
	}
	if len(undetected) != 1 || undetected[0] != (models.TileIndex{X: 1, Y: 0, Z: 0}) {
		t.Errorf("UndetectedTiles = %v", undetected)
	}

	_, err = db.InsertSlices(ctx, models.TileKey{WorkflowID: 999}, []models.SliceRecord{{ExternalID: "x", HullWKT: "POINT (0 0)"}})
	if !errors.Is(err, models.ErrWorkflowNotFound) {
		t.Errorf("InsertSlices on unknown workflow err = %v", err)
	}
}

func importFixture(t *testing.T, db *DB, projectID int64) {
	t.Helper()
	parent := int64(10)
	imp := &models.AnnotationImport{
		Stacks: []models.Stack{{ID: 1, Title: "em", ResolutionX: 4, ResolutionY: 4, ResolutionZ: 40, TranslationX: 100}},
		Treenodes: []models.Treenode{
			{ID: 10, SkeletonID: 100, X: 0, Y: 0, Z: 0},
			{ID: 11, SkeletonID: 100, ParentID: &parent, X: 10, Y: 0, Z: 0},
			{ID: 12, SkeletonID: 200, X: 100, Y: 100, Z: 100},
			{ID: 13, SkeletonID: 100, ParentID: &parent, X: 20, Y: 0, Z: 0},
		},
		Connectors: []models.Connector{
			{ID: 50, X: 5, Y: 5, Z: 0},
			{ID: 51, X: 1000, Y: 1000, Z: 1000},
			{ID: 52, X: 500, Y: 0, Z: 0},
		},
		Links: []models.ConnectorLink{
			{TreenodeID: 10, ConnectorID: 50, SkeletonID: 100, Relation: "presynaptic_to"},
			{TreenodeID: 12, ConnectorID: 50, SkeletonID: 200, Relation: "postsynaptic_to"},
			{TreenodeID: 11, ConnectorID: 52, SkeletonID: 100, Relation: "presynaptic_to"},
		},
		Labels: []models.Label{
			{TreenodeID: 10, Name: "synapse"},
			{TreenodeID: 12, Name: "synapse"},
			{TreenodeID: 11, Name: "other"},
		},
	}
	for i := 0; i < 2; i++ {
		sum, err := db.ImportAnnotations(context.Background(), projectID, imp)
		if err != nil {
			t.Fatalf("ImportAnnotations (pass %d): %v", i, err)
		}
		if sum.Treenodes != 4 || sum.Links != 3 || sum.Labels != 3 {
			t.Errorf("summary = %+v", sum)
		}
	}
}

func TestAssociations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fx := seedSlices(t, db)
	importFixture(t, db, 7)

	pw, err := db.GetOrCreateProjectWorkflow(ctx, 7, fx.wf.ID, "assoc-1", nil)
	if err != nil {
		t.Fatalf("GetOrCreateProjectWorkflow: %v", err)
	}
	if _, err := db.GetOrCreateProjectWorkflow(ctx, 7, 999, "assoc-1", nil); !errors.Is(err, models.ErrWorkflowNotFound) {
		t.Errorf("unknown workflow err = %v", err)
	}

	n, err := db.AddAssociations(ctx, pw.ID, []models.Association{
		{SliceID: &fx.a, TreenodeID: 10, ContactPx: 5},
		{SliceID: &fx.a, TreenodeID: 10, ContactPx: 3},
		{SliceID: &fx.c, TreenodeID: 11, ContactPx: 2},
		{SliceID: nil, TreenodeID: 12, ContactPx: 0},
	})
	if err != nil || n != 4 {
		t.Fatalf("AddAssociations = %d, %v", n, err)
	}

	unknown := models.SliceID(987654)
	_, err = db.AddAssociations(ctx, pw.ID, []models.Association{{SliceID: &unknown, TreenodeID: 10}})
	if !errors.Is(err, agglomerate.ErrSliceNotFound) {
		t.Errorf("unknown slice err = %v", err)
	}
	if _, err := db.AddAssociations(ctx, 999, nil); !errors.Is(err, models.ErrProjectWorkflowNotFound) {
		t.Errorf("unknown context err = %v", err)
	}

	assoc, err := db.TreenodeAssociations(ctx, pw.ID, 100)
	if err != nil {
		t.Fatalf("TreenodeAssociations: %v", err)
	}
	want := []models.TreenodeAssociation{
		{TreenodeID: 10, ObjectID: fx.object, ContactPx: 8},
		{TreenodeID: 11, ObjectID: fx.object, ContactPx: 2},
	}
	if len(assoc) != len(want) || assoc[0] != want[0] || assoc[1] != want[1] {
		t.Errorf("TreenodeAssociations = %+v, want %+v", assoc, want)
	}

	missing, err := db.UnassociatedTreenodes(ctx, 7, pw.ID, 100)
	if err != nil {
		t.Fatalf("UnassociatedTreenodes: %v", err)
	}
	if len(missing) != 1 || missing[0] != 13 {
		t.Errorf("UnassociatedTreenodes = %v, want [13]", missing)
	}

	contacts, err := db.SkeletonContacts(ctx, pw.ID, 100)
	if err != nil {
		t.Fatalf("SkeletonContacts: %v", err)
	}
	if len(contacts) != 3 {
		t.Errorf("SkeletonContacts returned %d rows, want 3", len(contacts))
	}

	details, err := db.SliceDetails(ctx, 7, fx.wf.ID, []int64{100})
	if err != nil {
		t.Fatalf("SliceDetails: %v", err)
	}
	// Repeated associations of slice a with treenode 10 stay separate rows.
	if len(details) != 3 {
		t.Errorf("SliceDetails returned %d rows, want 3", len(details))
	}
	var aRows int
	for _, d := range details {
		if d.SliceID == fx.a && d.TreenodeID == 10 {
			aRows++
		}
	}
	if aRows != 2 {
		t.Errorf("slice %d has %d rows for treenode 10, want 2", fx.a, aRows)
	}

	resolved, err := db.ResolveProjectWorkflow(ctx, 7, nil, nil)
	if err != nil || resolved.ID != pw.ID {
		t.Errorf("ResolveProjectWorkflow = %+v, %v; want id %d", resolved, err, pw.ID)
	}
	bogus := int64(999)
	if _, err := db.ResolveProjectWorkflow(ctx, 7, nil, &bogus); !errors.Is(err, models.ErrProjectWorkflowNotFound) {
		t.Errorf("unknown project workflow err = %v", err)
	}

	infos, err := db.WorkflowInfo(ctx, 7, nil)
	if err != nil {
		t.Fatalf("WorkflowInfo: %v", err)
	}
	if len(infos) != 1 || infos[0].DetectionAlgorithmHash != "det-1" || infos[0].AssociationAlgorithmHash != "assoc-1" {
		t.Errorf("WorkflowInfo = %+v", infos)
	}
}

func TestSpatialReads(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fx := seedSlices(t, db)
	importFixture(t, db, 7)

	tr, err := db.StackTransform(ctx, 7, 1)
	if err != nil {
		t.Fatalf("StackTransform: %v", err)
	}
	if tr.ResolutionZ != 40 || tr.TranslationX != 100 {
		t.Errorf("StackTransform = %+v", tr)
	}
	if _, err := db.StackTransform(ctx, 8, 1); !errors.Is(err, models.ErrStackNotFound) {
		t.Errorf("unknown project stack err = %v", err)
	}

	geoms, err := db.SliceGeometries(ctx, fx.wf.ID, []models.ObjectID{fx.object})
	if err != nil {
		t.Fatalf("SliceGeometries: %v", err)
	}
	if len(geoms) != 3 {
		t.Fatalf("SliceGeometries returned %d rows, want 3", len(geoms))
	}
	for _, g := range geoms {
		if g.SliceID == fx.a && (g.XMin != 0 || g.XMax != 1 || g.Z != 0) {
			t.Errorf("slice a geometry = %+v", g)
		}
		if g.SliceID == fx.c && g.Z != 1 {
			t.Errorf("slice c z = %d, want 1", g.Z)
		}
	}

	edges, err := db.ConnectorEdges(ctx, 7, models.ProjectBox{XMin: 0, XMax: 20, YMin: 0, YMax: 20, ZMin: -1, ZMax: 1})
	if err != nil {
		t.Fatalf("ConnectorEdges: %v", err)
	}
	type edge struct{ connector, treenode int64 }
	var got []edge
	for _, e := range edges {
		if e.TreenodeID == nil {
			t.Errorf("connector %d returned without treenode", e.ConnectorID)
			continue
		}
		got = append(got, edge{e.ConnectorID, *e.TreenodeID})
	}
	wantEdges := []edge{{50, 10}, {50, 12}, {52, 11}}
	if len(got) != len(wantEdges) {
		t.Fatalf("ConnectorEdges = %v, want %v", got, wantEdges)
	}
	for i := range wantEdges {
		if got[i] != wantEdges[i] {
			t.Errorf("edge %d = %v, want %v", i, got[i], wantEdges[i])
		}
	}
}

func TestTrainingReads(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	importFixture(t, db, 7)

	ids, err := db.TreenodeIDs(ctx, 7)
	if err != nil {
		t.Fatalf("TreenodeIDs: %v", err)
	}
	if len(ids) != 4 || ids[0] != 10 || ids[3] != 13 {
		t.Errorf("TreenodeIDs = %v", ids)
	}

	locs, err := db.TreenodeLocations(ctx, 7, []int64{11, 12})
	if err != nil {
		t.Fatalf("TreenodeLocations: %v", err)
	}
	if len(locs) != 2 {
		t.Errorf("TreenodeLocations = %v", locs)
	}

	labeled, err := db.TreenodesByLabel(ctx, 7, []string{"synapse"})
	if err != nil {
		t.Fatalf("TreenodesByLabel: %v", err)
	}
	if len(labeled) != 2 || labeled[0].TreenodeID != 10 || labeled[1].TreenodeID != 12 {
		t.Errorf("TreenodesByLabel = %+v", labeled)
	}
}

func TestClearSynapseTables(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fx := seedSlices(t, db)

	if err := db.clearSynapseTables(ctx); err != nil {
		t.Fatalf("clearSynapseTables: %v", err)
	}
	if _, err := db.Workflow(ctx, fx.wf.ID); !errors.Is(err, models.ErrWorkflowNotFound) {
		t.Errorf("workflow survived clear: %v", err)
	}
	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion: %v", err)
	}
	if want := len(db.getMigrations()); version != want {
		t.Errorf("schema version = %d, want %d", version, want)
	}
}

func TestMigrationStatement(t *testing.T) {
	t.Parallel()

	shared := Migration{SQL: "A"}
	pgOnly := Migration{Postgres: "B", DuckDB: "-"}
	override := Migration{SQL: "A", Postgres: "-"}

	tests := []struct {
		m      Migration
		driver string
		want   string
	}{
		{shared, config.DriverDuckDB, "A"},
		{shared, config.DriverPostgres, "A"},
		{pgOnly, config.DriverDuckDB, ""},
		{pgOnly, config.DriverPostgres, "B"},
		{override, config.DriverPostgres, ""},
		{override, config.DriverDuckDB, "A"},
	}
	for i, tt := range tests {
		if got := tt.m.statement(tt.driver); got != tt.want {
			t.Errorf("case %d: statement(%s) = %q, want %q", i, tt.driver, got, tt.want)
		}
	}
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	if got := placeholders(2, 3); got != "$2, $3, $4" {
		t.Errorf("placeholders(2, 3) = %q", got)
	}
	if got := placeholders(1, 0); got != "" {
		t.Errorf("placeholders(1, 0) = %q", got)
	}
	if got := duckdbDialect.references("stack", false); got != "" {
		t.Errorf("duckdb references = %q, want empty", got)
	}
	if got := postgresDialect.references("synapse_slice", true); got != " REFERENCES synapse_slice(id) ON DELETE SET NULL" {
		t.Errorf("postgres references = %q", got)
	}
}
