package migrations

import (
	"context"

	"MamaCare/db"
	"MamaCare/role"
	"MamaCare/util"
)

// BackfillNurseLoad gives nurses without a currentPatientLoad a zero
// counter. Existing counters are left for the reconcile job.
func BackfillNurseLoad(ctx context.Context, store db.Store) (int, error) {
	docs, err := store.Find(ctx, db.Query{
		Collection: util.UserCollection,
		Where:      []db.Cond{db.Where("role", db.Eq, string(role.Nurse))},
	})
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, doc := range docs {
		if _, ok := doc["currentPatientLoad"]; ok {
			continue
		}
		err := store.Update(ctx, util.UserCollection, docID(doc), db.Mutation{
			Set: map[string]interface{}{"currentPatientLoad": int64(0)},
		})
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
