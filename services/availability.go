package services

import (
	"context"
	"strings"

	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/role"
	"MamaCare/util"

	"go.uber.org/zap"
)

/*
* Nurses below the capacity limit ordered by name
* A non-empty context id narrows the result to that department
 */
func (s *AssignmentService) ListAvailableNurses(ctx context.Context, contextID string) ([]models.NurseSummary, error) {
	where := []db.Cond{
		db.Where("role", db.Eq, string(role.Nurse)),
		db.Where("currentPatientLoad", db.Lt, s.capacity),
	}
	if department := strings.TrimSpace(contextID); department != "" {
		where = append(where, db.Where("department", db.Eq, department))
	}

	docs, err := s.store.Find(ctx, db.Query{
		Collection: util.UserCollection,
		Where:      where,
		OrderBy:    "name",
	})
	if err != nil {
		s.metrics.Availability(string(util.KindBackendUnavailable))
		s.log.Warn("availability query failed", zap.String("context", contextID), zap.Error(err))
		return nil, util.Unavailable(err)
	}
	nurses, err := db.DecodeAll[models.User](docs)
	if err != nil {
		s.metrics.Availability(string(util.KindBackendUnavailable))
		return nil, util.Unavailable(err)
	}

	out := make([]models.NurseSummary, 0, len(nurses))
	for _, n := range nurses {
		out = append(out, models.SummarizeNurse(n))
	}
	s.metrics.Availability("ok")
	return out, nil
}
