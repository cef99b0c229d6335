// Package migration implements Ocean's schema-version bookkeeping: a
// monotonic uint32 version stored under the metadata column, and an ordered
// list of idempotent migration steps applied on startup, per spec.md §4.3.
package migration

import (
	"bytes"
	"fmt"

	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/log"
	"github.com/defich/ocean/internal/ocerr"
)

// CurrentVersion is the schema version this binary was built against.
const CurrentVersion uint32 = 3

// MetadataBucket is the column that stores the "version" key, per spec.md §6
// ("The metadata column stores version -> u32 under the key \"version\"").
const MetadataBucket = "metadata"

// versionKey is the fixed key under which the schema version is stored.
var versionKey = []byte("version")

// Migration is one ordered, idempotent schema upgrade step keyed by a
// monotonic version integer.
type Migration struct {
	TargetVersion uint32
	Name          string
	Apply         func(*kv.Store) error
}

// ReadVersion reads the current on-disk schema version, defaulting to 0 if
// never written (a brand new store).
func ReadVersion(store *kv.Store) (uint32, error) {
	raw, err := store.Get(MetadataBucket, versionKey)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if raw == nil {
		return 0, nil
	}
	v, _, err := kv.ReadUint32(raw)
	if err != nil {
		return 0, fmt.Errorf("decode schema version: %w", err)
	}
	return v, nil
}

func writeVersion(store *kv.Store, v uint32) error {
	var buf bytes.Buffer
	kv.PutUint32(&buf, v)
	if err := store.Put(MetadataBucket, versionKey, buf.Bytes()); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return store.Flush()
}

// Run applies every migration in steps whose TargetVersion is greater than
// the on-disk version, in ascending order, up to CurrentVersion. Each step's
// new version is written and flushed immediately after it succeeds. Steps
// are expected to be idempotent: re-running a completed migration must be a
// no-op (spec.md §4.3, tested in migration_test.go).
func Run(store *kv.Store, steps []Migration) error {
	logger := log.WithComponent("migration")

	current, err := ReadVersion(store)
	if err != nil {
		return err
	}

	if current > CurrentVersion {
		return fmt.Errorf("%w: on-disk version %d > binary version %d, upgrade the node",
			ocerr.ErrUnsupportedVersion, current, CurrentVersion)
	}

	for _, step := range steps {
		if step.TargetVersion <= current {
			continue
		}
		if step.TargetVersion > CurrentVersion {
			break
		}
		logger.Info().Uint32("target_version", step.TargetVersion).Str("name", step.Name).Msg("applying migration")
		if err := step.Apply(store); err != nil {
			return fmt.Errorf("migration %q (v%d): %w", step.Name, step.TargetVersion, err)
		}
		if err := writeVersion(store, step.TargetVersion); err != nil {
			return err
		}
		current = step.TargetVersion
	}

	return nil
}
