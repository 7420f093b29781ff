package services

import (
	"context"

	"MamaCare/db"
	"MamaCare/metrics"
	"MamaCare/models"
	"MamaCare/role"
	"MamaCare/util"

	"go.uber.org/zap"
)

// ReconcileService rewrites nurse load counters that drifted from the
// number of patients actually pointing at them.
type ReconcileService struct {
	store   db.Store
	proj    *projector
	metrics *metrics.Metrics
	log     *zap.Logger
}

/*
* List every nurse
* Count the patients whose pointer references the nurse
* When the count differs, re-read the nurse in a transaction and
* rewrite the counter only if it did not move since it was read
 */
func (s *ReconcileService) Reconcile(ctx context.Context) ([]models.LoadCorrection, error) {
	docs, err := s.store.Find(ctx, db.Query{
		Collection: util.UserCollection,
		Where:      []db.Cond{db.Where("role", db.Eq, string(role.Nurse))},
		OrderBy:    "name",
	})
	if err != nil {
		s.log.Error("reconcile could not list nurses", zap.Error(err))
		return nil, util.Unavailable(err)
	}
	nurses, err := db.DecodeAll[models.User](docs)
	if err != nil {
		return nil, util.Unavailable(err)
	}

	corrections := []models.LoadCorrection{}
	for _, nurse := range nurses {
		if err := ctx.Err(); err != nil {
			return corrections, util.Unavailable(err)
		}
		patients, err := s.store.Find(ctx, db.Query{
			Collection: util.UserCollection,
			Where: []db.Cond{
				db.Where("role", db.Eq, string(role.Patient)),
				db.Where("assignedNurseId", db.Eq, nurse.ID),
			},
		})
		if err != nil {
			s.log.Warn("reconcile could not count patients", zap.String("nurseId", nurse.ID), zap.Error(err))
			continue
		}
		actual := int64(len(patients))
		if actual == nurse.CurrentPatientLoad {
			continue
		}

		seen := nurse.CurrentPatientLoad
		applied := false
		err = s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			applied = false
			current, err := readNurse(ctx, tx, nurse.ID)
			if err != nil {
				return err
			}
			if current.CurrentPatientLoad != seen {
				return nil
			}
			applied = true
			return tx.Update(ctx, util.UserCollection, nurse.ID, db.Mutation{
				Set: map[string]interface{}{"currentPatientLoad": actual, "updatedAt": db.ServerTimestamp},
			})
		})
		if err != nil {
			s.log.Warn("reconcile could not correct nurse load", zap.String("nurseId", nurse.ID), zap.Error(err))
			continue
		}
		if !applied {
			s.log.Info("nurse load changed during reconcile, skipped", zap.String("nurseId", nurse.ID))
			continue
		}

		s.log.Warn("nurse load corrected",
			zap.String("nurseId", nurse.ID),
			zap.Int64("recorded", seen),
			zap.Int64("actual", actual),
		)
		corrections = append(corrections, models.LoadCorrection{NurseID: nurse.ID, Recorded: seen, Actual: actual})
		s.proj.refresh(ctx, nurse.ID)
	}
	s.metrics.LoadCorrected(len(corrections))
	s.log.Info("reconcile finished", zap.Int("nurses", len(nurses)), zap.Int("corrections", len(corrections)))
	return corrections, nil
}
