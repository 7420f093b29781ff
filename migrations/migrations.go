package migrations

import (
	"context"
	"fmt"
	"time"

	"MamaCare/db"
	"MamaCare/util"

	"go.uber.org/zap"
)

// Migration rewrites stored documents in place. Up returns how many
// documents it touched and must be safe to run again.
type Migration struct {
	Name string
	Up   func(ctx context.Context, store db.Store) (int, error)
}

func All() []Migration {
	return []Migration{
		{Name: "001_normalize_roles", Up: NormalizeRoles},
		{Name: "002_backfill_nurse_load", Up: BackfillNurseLoad},
		{Name: "003_default_permissions", Up: DefaultPermissions},
		{Name: "004_rekey_assignment_audit", Up: RekeyAssignmentAudit},
	}
}

/*
* Run every migration in order
* Stop at the first failure
 */
func Run(ctx context.Context, store db.Store, log *zap.Logger) error {
	for _, m := range All() {
		start := time.Now()
		updated, err := m.Up(ctx, store)
		if err != nil {
			log.Error("migration failed", zap.String("migration", m.Name), zap.Error(err))
			return fmt.Errorf("%s: %w", m.Name, err)
		}
		log.Info("migration applied",
			zap.String("migration", m.Name),
			zap.Int("updated", updated),
			zap.Duration("took", time.Since(start)),
		)
	}
	return nil
}

func allUsers(ctx context.Context, store db.Store) ([]db.Document, error) {
	return store.Find(ctx, db.Query{Collection: util.UserCollection})
}

func docID(doc db.Document) string {
	id, _ := doc[db.IDField].(string)
	return id
}
