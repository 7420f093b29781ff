package services

import (
	"context"

	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/report"
	"MamaCare/role"
	"MamaCare/util"
)

type ReportService struct {
	assignments *AssignmentService
	capacity    int64
}

// Roster lists every nurse with their load and assigned patient names.
func (s *ReportService) Roster(ctx context.Context) ([]models.RosterEntry, error) {
	docs, err := s.assignments.store.Find(ctx, db.Query{
		Collection: util.UserCollection,
		Where:      []db.Cond{db.Where("role", db.Eq, string(role.Nurse))},
		OrderBy:    "name",
	})
	if err != nil {
		return nil, util.Unavailable(err)
	}
	nurses, err := db.DecodeAll[models.User](docs)
	if err != nil {
		return nil, util.Unavailable(err)
	}

	entries := make([]models.RosterEntry, 0, len(nurses))
	for _, n := range nurses {
		patients, err := s.assignments.patientsOf(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(patients))
		for _, p := range patients {
			names = append(names, p.Name)
		}
		entries = append(entries, models.RosterEntry{
			Nurse:    models.SummarizeNurse(n),
			Capacity: s.capacity,
			Patients: names,
		})
	}
	return entries, nil
}

func (s *ReportService) RosterWorkbook(ctx context.Context) ([]byte, error) {
	entries, err := s.Roster(ctx)
	if err != nil {
		return nil, err
	}
	return report.Roster(entries)
}
