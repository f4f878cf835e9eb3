package app

import (
	"os"
	"path/filepath"
	"testing"
)

// TestGetRootDir_FlagOverride verifies --root wins over the home default and
// the directory is created.
func TestGetRootDir_FlagOverride(t *testing.T) {
	oldRoot := rootFlag
	defer func() { rootFlag = oldRoot }()

	rootFlag = filepath.Join(t.TempDir(), "pinroot")
	got, err := getRootDir()
	if err != nil {
		t.Fatalf("getRootDir failed: %v", err)
	}
	if got != rootFlag {
		t.Errorf("getRootDir() = %s; want %s", got, rootFlag)
	}
	info, err := os.Stat(got)
	if err != nil || !info.IsDir() {
		t.Errorf("root directory should be created: %v", err)
	}
}

// TestGetRootDir_Default verifies the ~/.pinbuild default.
func TestGetRootDir_Default(t *testing.T) {
	oldRoot := rootFlag
	defer func() { rootFlag = oldRoot }()
	rootFlag = ""

	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := getRootDir()
	if err != nil {
		t.Fatalf("getRootDir failed: %v", err)
	}
	if got != filepath.Join(home, ".pinbuild") {
		t.Errorf("getRootDir() = %s; want %s", got, filepath.Join(home, ".pinbuild"))
	}
}

// TestGetDBPath verifies the --db override and the root-relative default.
func TestGetDBPath(t *testing.T) {
	oldRoot, oldDB := rootFlag, dbFlag
	defer func() { rootFlag, dbFlag = oldRoot, oldDB }()

	dbFlag = "/tmp/custom.db"
	got, err := getDBPath()
	if err != nil {
		t.Fatalf("getDBPath failed: %v", err)
	}
	if got != "/tmp/custom.db" {
		t.Errorf("getDBPath() = %s; want flag override", got)
	}

	dbFlag = ""
	rootFlag = t.TempDir()
	got, err = getDBPath()
	if err != nil {
		t.Fatalf("getDBPath failed: %v", err)
	}
	if got != filepath.Join(rootFlag, "pinbuild.db") {
		t.Errorf("getDBPath() = %s; want pinbuild.db under root", got)
	}
}

// TestOpenStore verifies the database opens with its schema in place.
func TestOpenStore(t *testing.T) {
	oldRoot, oldDB := rootFlag, dbFlag
	defer func() { rootFlag, dbFlag = oldRoot, oldDB }()
	rootFlag = t.TempDir()
	dbFlag = ""

	db, err := openStore()
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer db.Close()

	if _, err := db.ListReceipts(); err != nil {
		t.Errorf("schema should exist after openStore: %v", err)
	}
}

// TestRootCmd_Subcommands verifies every command is registered.
func TestRootCmd_Subcommands(t *testing.T) {
	want := []string{"build", "fetch", "validate", "list", "show", "verify", "remove", "watch"}
	for _, name := range want {
		found := false
		for _, cmd := range RootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}
