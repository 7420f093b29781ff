package services

import (
	"context"
	"errors"
	"strings"

	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/role"
	"MamaCare/session"
	"MamaCare/util"

	"go.uber.org/zap"
)

type UserService struct {
	store db.Store
	proj  *projector
	hub   *session.Hub
	log   *zap.Logger
}

func (s *UserService) GetProfile(ctx context.Context, uid string) (models.User, error) {
	if strings.TrimSpace(uid) == "" {
		return models.User{}, util.InvalidArgument(util.USER_ID_REQUIRED)
	}
	return s.proj.load(ctx, uid)
}

/*
* Only non-nil fields are written
* The projection is refreshed from the stored document
 */
func (s *UserService) UpdateProfile(ctx context.Context, uid string, req models.ProfileUpdate) (models.User, error) {
	set := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return models.User{}, util.InvalidArgument("name cannot be empty")
		}
		set["name"] = name
	}
	if req.PhoneNo != nil {
		set["phoneNo"] = strings.TrimSpace(*req.PhoneNo)
	}
	if req.Specialty != nil {
		set["specialty"] = strings.TrimSpace(*req.Specialty)
	}
	if req.Department != nil {
		set["department"] = strings.TrimSpace(*req.Department)
	}
	if len(set) == 0 {
		return s.GetProfile(ctx, uid)
	}
	set["updatedAt"] = db.ServerTimestamp

	err := s.store.Update(ctx, util.UserCollection, uid, db.Mutation{Set: set})
	if errors.Is(err, db.ErrNotFound) {
		return models.User{}, util.NotFound(util.CODE_USER_NOT_FOUND, util.USER_NOT_FOUND)
	}
	if err != nil {
		s.log.Warn("profile update failed", zap.String("userId", uid), zap.Error(err))
		return models.User{}, classify(err)
	}
	s.proj.refresh(ctx, uid)
	return s.proj.load(ctx, uid)
}

/*
* Parse the requested role
* A nurse still holding patients cannot leave the nurse role, checked
* against the patient documents as well as the counter
* A patient with an assigned nurse cannot leave the patient role
* Reset permissions to the role defaults and bump the token version so
* tokens carrying the old permissions stop working
 */
func (s *UserService) ChangeRole(ctx context.Context, uid, requested, by string) (models.User, error) {
	next := role.Parse(requested)
	if !next.Valid() {
		return models.User{}, util.InvalidArgument(util.INVALID_ROLE)
	}

	var prev role.Role
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		user, err := getUser(ctx, tx, uid)
		if errors.Is(err, db.ErrNotFound) {
			return util.NotFound(util.CODE_USER_NOT_FOUND, util.USER_NOT_FOUND)
		}
		if err != nil {
			return err
		}
		prev = role.Parse(string(user.Role))
		if prev == next {
			return nil
		}
		if prev == role.Nurse {
			held, err := nurseHoldsPatients(ctx, tx, user)
			if err != nil {
				return err
			}
			if held {
				return util.InvariantViolation(util.CODE_NURSE_HAS_PATIENTS, util.NURSE_STILL_HAS_PATIENTS)
			}
		}
		if prev == role.Patient && user.AssignedNurseID != "" {
			return util.InvariantViolation(util.CODE_PATIENT_HAS_NURSE, util.PATIENT_STILL_HAS_NURSE)
		}

		set := map[string]interface{}{
			"role":        string(next),
			"permissions": role.Strings(role.DefaultPermissions(next)),
			"updatedAt":   db.ServerTimestamp,
		}
		if next == role.Nurse {
			set["currentPatientLoad"] = int64(0)
		}
		return tx.Update(ctx, util.UserCollection, uid, db.Mutation{
			Set: set,
			Inc: map[string]int64{"tokenVersion": 1},
		})
	})
	if err != nil {
		s.log.Warn("role change failed", zap.String("userId", uid), zap.String("role", string(next)), zap.Error(err))
		return models.User{}, classify(err)
	}

	s.proj.refresh(ctx, uid)
	user, err := s.proj.load(ctx, uid)
	if err != nil {
		return models.User{}, err
	}
	if prev != next {
		s.hub.SignOut(IdentityOf(user))
		s.log.Info("role changed",
			zap.String("userId", uid),
			zap.String("from", string(prev)),
			zap.String("to", string(next)),
			zap.String("by", by),
		)
	}
	return user, nil
}

// nurseHoldsPatients checks the patient pointers, not only the load counter,
// since the counter may have drifted.
func nurseHoldsPatients(ctx context.Context, tx db.Tx, nurse models.User) (bool, error) {
	if nurse.CurrentPatientLoad > 0 {
		return true, nil
	}
	patients, err := tx.Find(ctx, db.Query{
		Collection: util.UserCollection,
		Where: []db.Cond{
			db.Where("role", db.Eq, string(role.Patient)),
			db.Where("assignedNurseId", db.Eq, nurse.ID),
		},
		Limit: 1,
	})
	if err != nil {
		return false, err
	}
	return len(patients) > 0, nil
}

// ListByRole returns users holding r ordered by name.
func (s *UserService) ListByRole(ctx context.Context, r role.Role) ([]models.User, error) {
	docs, err := s.store.Find(ctx, db.Query{
		Collection: util.UserCollection,
		Where:      []db.Cond{db.Where("role", db.Eq, string(r))},
		OrderBy:    "name",
	})
	if err != nil {
		return nil, util.Unavailable(err)
	}
	users, err := db.DecodeAll[models.User](docs)
	if err != nil {
		return nil, util.Unavailable(err)
	}
	return users, nil
}
