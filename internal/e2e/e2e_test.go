package e2e_test

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/klauern/snapsync/internal/e2e"
	"github.com/klauern/snapsync/internal/model"
)

var base = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func laptopSnapshot() model.Snapshot {
	return model.Snapshot{
		UpdatedAt:   base,
		Description: "spring board",
		History:     []model.HistoryItem{{ID: "h1", Prompt: "linen set", CreatedAt: base}},
		StylingHistory: map[string][]model.StylingItem{
			"casual": {{ID: "s1", Style: "denim", CreatedAt: base}},
		},
		Wardrobe: []model.WardrobeItem{{ID: "w1", Name: "trench", Category: "outerwear", AddedAt: base}},
	}
}

func phoneSnapshot() model.Snapshot {
	later := base.Add(time.Hour)
	return model.Snapshot{
		UpdatedAt:   later,
		Description: "summer board",
		History: []model.HistoryItem{
			{ID: "h1", Prompt: "linen set", CreatedAt: base},
			{ID: "h2", Prompt: "beach look", CreatedAt: later},
		},
		StylingHistory: map[string][]model.StylingItem{
			"casual": {{ID: "s1", Style: "denim", CreatedAt: base}},
			"formal": {{ID: "s2", Style: "black tie", CreatedAt: later}},
		},
		Wardrobe: []model.WardrobeItem{
			{ID: "w1", Name: "trench", Category: "outerwear", AddedAt: base},
			{ID: "w2", Name: "sandals", Category: "shoes", AddedAt: later},
		},
	}
}

// TestVersionCommand verifies the version command works correctly.
func TestVersionCommand(t *testing.T) {
	h := e2e.NewHarness(t)

	result := h.Run("version")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "snapsync version")
}

// TestConfigShowCommand verifies config outputs the effective configuration.
func TestConfigShowCommand(t *testing.T) {
	h := e2e.NewHarness(t)
	device := h.Device("laptop", "")

	result := device.Run("config")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "sync:")
	e2e.AssertOutputContains(t, result, h.ServerURL())
}

// TestTwoDeviceDivergence drives two devices into conflict and resolves it
// with the smart strategy on both sides.
func TestTwoDeviceDivergence(t *testing.T) {
	h := e2e.NewHarness(t)
	laptop := h.Device("laptop", "")
	phone := h.Device("phone", "")

	file := laptop.Fixture().WriteSnapshot("board.yaml", laptopSnapshot())
	e2e.AssertSuccess(t, laptop.Run("import", "board", file))

	result := laptop.Run("sync", "board")
	e2e.AssertSuccess(t, result)
	e2e.AssertStatus(t, result, "Synced")

	// The phone has never seen the project.
	result = phone.Run("sync", "board")
	e2e.AssertError(t, result)
	e2e.AssertStatus(t, result, "Error")
	e2e.AssertOutputContains(t, result, "no local snapshot")

	file = phone.Fixture().WriteSnapshot("board.yaml", phoneSnapshot())
	e2e.AssertSuccess(t, phone.Run("import", "board", file))

	result = phone.Run("sync", "board")
	e2e.AssertErrorContains(t, result, "unresolved conflicts")
	e2e.AssertExitCode(t, result, 1)
	e2e.AssertStatus(t, result, "Conflict")
	e2e.AssertOutputContains(t, result, "4 conflict(s) in project board")
	e2e.AssertOutputContains(t, result, "stylingHistory.formal")
	e2e.AssertOutputContains(t, result, "summer board")

	result = phone.Run("resolve", "board", "--strategy", "smart")
	e2e.AssertSuccess(t, result)
	e2e.AssertStatus(t, result, "Synced")
	e2e.AssertOutputNotContains(t, result, "conflict(s)")

	rec, err := h.Cloud().Get(context.Background(), "board")
	if err != nil {
		t.Fatalf("cloud Get() error = %v", err)
	}
	if rec.Snapshot.Description != "summer board" {
		t.Errorf("cloud description = %q, want the newer phone text", rec.Snapshot.Description)
	}
	if got := model.IDs(rec.Snapshot.Wardrobe); !slices.Equal(got, []string{"w1", "w2"}) {
		t.Errorf("cloud wardrobe = %v, want [w1 w2]", got)
	}

	// The laptop now diverges from the merged cloud copy.
	result = laptop.Run("sync", "board")
	e2e.AssertErrorContains(t, result, "unresolved conflicts")

	result = laptop.Run("resolve", "board")
	e2e.AssertSuccess(t, result)
	e2e.AssertStatus(t, result, "Synced")

	out := laptop.Fixture().Path("out.yaml")
	e2e.AssertSuccess(t, laptop.Run("export", "board", "--output", out))
	e2e.AssertFileContains(t, out, "summer board")
	merged := laptop.Fixture().ReadSnapshot("out.yaml")
	if merged.Description != "summer board" {
		t.Errorf("laptop description = %q, want %q", merged.Description, "summer board")
	}
	if got := model.IDs(merged.History); !slices.Equal(got, []string{"h1", "h2"}) {
		t.Errorf("laptop history = %v, want [h1 h2]", got)
	}
	if got := merged.StylingKeys(); !slices.Equal(got, []string{"casual", "formal"}) {
		t.Errorf("laptop styling keys = %v, want [casual formal]", got)
	}

	// Nothing changed since the last resolution.
	result = laptop.Run("sync", "board")
	e2e.AssertSuccess(t, result)
	e2e.AssertStatus(t, result, "Synced")

	// Smart resolutions never discard data, so no backups were taken.
	result = laptop.Run("backups", "board")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "No backups found")
	e2e.AssertBackupFiles(t, laptop.Fixture().Path("backups"), "board", 0)
}

// TestPreferLocalBacksUpDiscardedRemote checks that a destructive
// resolution keeps a recoverable copy of the side it overwrote.
func TestPreferLocalBacksUpDiscardedRemote(t *testing.T) {
	h := e2e.NewHarness(t)
	laptop := h.Device("laptop", "")
	ctx := context.Background()

	file := laptop.Fixture().WriteSnapshot("board.yaml", laptopSnapshot())
	e2e.AssertSuccess(t, laptop.Run("import", "board", file))
	e2e.AssertSuccess(t, laptop.Run("sync", "board"))

	cloud := laptopSnapshot()
	cloud.UpdatedAt = base.Add(2 * time.Hour)
	cloud.Wardrobe = append(cloud.Wardrobe, model.WardrobeItem{ID: "w9", Name: "scarf"})
	if err := h.Cloud().Put(ctx, "board", cloud); err != nil {
		t.Fatalf("cloud Put() error = %v", err)
	}

	result := laptop.Run("sync", "board", "--strategy", "prefer-local")
	e2e.AssertSuccess(t, result)
	e2e.AssertStatus(t, result, "Synced")

	rec, err := h.Cloud().Get(ctx, "board")
	if err != nil {
		t.Fatalf("cloud Get() error = %v", err)
	}
	if slices.Contains(model.IDs(rec.Snapshot.Wardrobe), "w9") {
		t.Error("prefer-local should have discarded the remote-only wardrobe item")
	}

	result = laptop.Run("backups", "board")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "before prefer-local resolution")
	if !laptop.Fixture().Exists("backups/index.json") {
		t.Fatal("expected a backup index")
	}
	// One copy of each side; the remote copy still holds the discarded item.
	e2e.AssertBackupFiles(t, laptop.Fixture().Path("backups"), "board", 2)
	remoteCopies, err := filepath.Glob(laptop.Fixture().Path("backups/board/*-remote-*.json"))
	if err != nil || len(remoteCopies) != 1 {
		t.Fatalf("remote backups = %v (err %v), want exactly one", remoteCopies, err)
	}
	e2e.AssertFileContains(t, remoteCopies[0], "w9")
}

// TestStaleCloudWriteIsNotAnError covers a resolution whose push is older
// than what the cloud already holds.
func TestStaleCloudWriteIsNotAnError(t *testing.T) {
	h := e2e.NewHarness(t)
	laptop := h.Device("laptop", "")
	ctx := context.Background()

	file := laptop.Fixture().WriteSnapshot("board.yaml", laptopSnapshot())
	e2e.AssertSuccess(t, laptop.Run("import", "board", file))
	e2e.AssertSuccess(t, laptop.Run("sync", "board"))

	for round := 1; round <= 3; round++ {
		cloud := laptopSnapshot()
		cloud.UpdatedAt = time.Now().UTC().Add(time.Duration(round) * time.Hour)
		cloud.Description = fmt.Sprintf("round %d", round)
		if err := h.Cloud().Put(ctx, "board", cloud); err != nil {
			t.Fatalf("round %d: cloud Put() error = %v", round, err)
		}

		result := laptop.Run("sync", "board", "--strategy", "prefer-remote")
		e2e.AssertSuccess(t, result)
		e2e.AssertStatus(t, result, "Synced")

		rec, err := h.Cloud().Get(ctx, "board")
		if err != nil {
			t.Fatalf("round %d: cloud Get() error = %v", round, err)
		}
		if want := fmt.Sprintf("round %d", round); rec.Snapshot.Description != want {
			t.Errorf("round %d: cloud description = %q, want %q", round, rec.Snapshot.Description, want)
		}
	}

	// Three destructive resolutions left three backups per side; the
	// device keeps two.
	backups := laptop.Fixture().Path("backups")
	e2e.AssertBackupFiles(t, backups, "board", 6)
	result := laptop.Run("backups", "board", "--prune")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "removed 2 backup(s)")
	e2e.AssertBackupFiles(t, backups, "board", 4)
}

// TestOfflineDevice verifies status and sync while the cloud is down.
func TestOfflineDevice(t *testing.T) {
	h := e2e.NewHarness(t)
	laptop := h.Device("laptop", "")

	file := laptop.Fixture().WriteSnapshot("board.yaml", laptopSnapshot())
	e2e.AssertSuccess(t, laptop.Run("import", "board", file))
	e2e.AssertSuccess(t, laptop.Run("sync", "board"))

	h.StopServer()

	result := laptop.Run("status", "board")
	e2e.AssertSuccess(t, result)
	e2e.AssertStatus(t, result, "Offline")

	// The cached cloud copy matches, so the snapshot is kept locally but
	// the push cannot complete.
	result = laptop.Run("sync", "board")
	e2e.AssertError(t, result)
	e2e.AssertStatus(t, result, "Error")

	result = laptop.Run("export", "board")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "spring board")
}

// TestServerToken verifies bearer-token protection of the cloud server.
func TestServerToken(t *testing.T) {
	h := e2e.NewHarness(t, e2e.WithServerToken("s3cret"))
	anonymous := h.Device("anonymous", "")
	trusted := h.Device("trusted", "s3cret")

	for _, device := range []*e2e.Device{anonymous, trusted} {
		file := device.Fixture().WriteSnapshot("board.yaml", laptopSnapshot())
		e2e.AssertSuccess(t, device.Run("import", "board", file))
	}

	result := anonymous.Run("sync", "board")
	e2e.AssertError(t, result)
	e2e.AssertStatus(t, result, "Error")

	result = trusted.Run("sync", "board")
	e2e.AssertSuccess(t, result)
	e2e.AssertStatus(t, result, "Synced")
}
