package migrations

import (
	"context"

	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/util"
)

// RekeyAssignmentAudit moves audit records stored under the old
// "<nurse>_<patient>" key to the current AssignmentID key.
func RekeyAssignmentAudit(ctx context.Context, store db.Store) (int, error) {
	docs, err := store.Find(ctx, db.Query{Collection: util.NurseAssignmentCollection})
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, doc := range docs {
		nurseID, _ := doc["nurseId"].(string)
		patientID, _ := doc["patientId"].(string)
		if nurseID == "" || patientID == "" {
			continue
		}
		oldID := docID(doc)
		newID := models.AssignmentID(nurseID, patientID)
		if oldID == newID {
			continue
		}
		err := store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			if err := tx.Set(ctx, util.NurseAssignmentCollection, newID, doc); err != nil {
				return err
			}
			return tx.Delete(ctx, util.NurseAssignmentCollection, oldID)
		})
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
