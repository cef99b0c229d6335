// Command ocean-migrate runs Ocean's schema migrations against an existing
// data directory outside the daemon process, grounded on the teacher's
// backup-then-migrate CLI shape (cmd/warren-migrate/main.go).
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/migration"
	"github.com/defich/ocean/internal/schema"
	"github.com/defich/ocean/internal/trie"
)

const dbFileName = "ocean.db"

var (
	dataDir    = flag.String("data-dir", "/var/lib/ocean", "ocean data directory")
	dryRun     = flag.Bool("dry-run", false, "report the current and target schema version without migrating")
	backupPath = flag.String("backup", "", "path to back up the database before migrating (default: <data-dir>/ocean.db.backup)")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Ocean Database Migration Tool")
	log.Println("=============================")

	dbPath := filepath.Join(*dataDir, dbFileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Fatalf("database not found at %s", dbPath)
	}
	log.Printf("database: %s", dbPath)
	log.Printf("dry run: %v", *dryRun)

	if !*dryRun {
		backupFile := *backupPath
		if backupFile == "" {
			backupFile = dbPath + ".backup"
		}
		log.Printf("creating backup: %s", backupFile)
		if err := copyFile(dbPath, backupFile); err != nil {
			log.Fatalf("failed to create backup: %v", err)
		}
		log.Println("backup created")
	}

	buckets := append(append([]string{migration.MetadataBucket}, schema.Buckets()...), trie.Buckets()...)
	store, err := kv.Open(dbPath, kv.DefaultOptions(), buckets)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	before, err := migration.ReadVersion(store)
	if err != nil {
		log.Fatalf("failed to read schema version: %v", err)
	}
	log.Printf("current schema version: %d", before)
	log.Printf("target schema version: %d", len(migration.Steps))

	if *dryRun {
		log.Println("dry run complete, no changes made")
		return
	}

	if err := migration.Run(store, migration.Steps); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	after, err := migration.ReadVersion(store)
	if err != nil {
		log.Fatalf("failed to re-read schema version: %v", err)
	}
	log.Printf("migration complete: %d -> %d", before, after)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return out.Sync()
}
