package services

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/predictor"
	"MamaCare/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RiskPredictor interface {
	Predict(ctx context.Context, v models.Vitals) (models.Prediction, error)
}

type RiskService struct {
	store     db.Store
	predictor RiskPredictor
	log       *zap.Logger
}

// Body temperatures under this value are taken to be Celsius.
const celsiusCeiling = 50.0

/*
* Every vital must be present and age must be positive
* Celsius temperatures are converted to Fahrenheit
* The prediction is stored against the patient before it is returned
 */
func (s *RiskService) Assess(ctx context.Context, patientID string, v models.Vitals) (models.RiskAssessment, error) {
	v, err := normalizeVitals(v)
	if err != nil {
		return models.RiskAssessment{}, err
	}
	if s.predictor == nil {
		return models.RiskAssessment{}, util.Unavailable(errors.New("risk predictor not configured"))
	}

	prediction, err := s.predictor.Predict(ctx, v)
	if err != nil {
		var statusErr *predictor.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode >= http.StatusBadRequest && statusErr.StatusCode < http.StatusInternalServerError {
			return models.RiskAssessment{}, util.InvalidArgument(statusErr.Detail)
		}
		s.log.Error("risk prediction failed", zap.String("patientId", patientID), zap.Error(err))
		return models.RiskAssessment{}, util.Unavailable(err)
	}

	assessment := models.RiskAssessment{
		ID:                 uuid.NewString(),
		PatientID:          patientID,
		Inputs:             v,
		PredictedRiskLevel: prediction.PredictedRiskLevel,
		Advice:             prediction.AdviceMessage,
		Probabilities:      prediction.Probabilities,
		CreatedAt:          time.Now().UTC(),
	}
	doc, err := db.Encode(assessment)
	if err != nil {
		return models.RiskAssessment{}, err
	}
	if err := s.store.Create(ctx, util.RiskAssessmentCollection, assessment.ID, doc); err != nil {
		s.log.Error("store risk assessment failed", zap.String("patientId", patientID), zap.Error(err))
		return models.RiskAssessment{}, classify(err)
	}
	s.log.Info("risk assessed", zap.String("patientId", patientID), zap.String("level", assessment.PredictedRiskLevel))
	return assessment, nil
}

// History lists a patient's assessments, newest first.
func (s *RiskService) History(ctx context.Context, patientID string, limit int) ([]models.RiskAssessment, error) {
	docs, err := s.store.Find(ctx, db.Query{
		Collection: util.RiskAssessmentCollection,
		Where:      []db.Cond{db.Where("patientId", db.Eq, patientID)},
		OrderBy:    "createdAt",
		Desc:       true,
		Limit:      limit,
	})
	if err != nil {
		return nil, util.Unavailable(err)
	}
	out, err := db.DecodeAll[models.RiskAssessment](docs)
	if err != nil {
		return nil, util.Unavailable(err)
	}
	return out, nil
}

func normalizeVitals(v models.Vitals) (models.Vitals, error) {
	for _, f := range []*float64{v.Age, v.SystolicBP, v.DiastolicBP, v.BS, v.BodyTemp, v.HeartRate} {
		if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
			return v, util.InvalidArgument(util.INVALID_VITALS)
		}
	}
	if *v.Age <= 0 {
		return v, util.InvalidArgument(util.INVALID_VITALS)
	}
	// The predictor takes these as integers.
	for _, f := range []*float64{v.Age, v.SystolicBP, v.DiastolicBP, v.HeartRate} {
		if *f != math.Trunc(*f) {
			return v, util.InvalidArgument(util.INVALID_VITALS)
		}
	}
	if *v.BodyTemp < celsiusCeiling {
		f := math.Round((*v.BodyTemp*9/5+32)*10) / 10
		v.BodyTemp = &f
	}
	return v, nil
}
