package services

import (
	"context"
	"errors"
	"testing"

	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/predictor"
	"MamaCare/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) Predict(ctx context.Context, v models.Vitals) (models.Prediction, error) {
	args := m.Called(ctx, v)
	return args.Get(0).(models.Prediction), args.Error(1)
}

func f64(v float64) *float64 { return &v }

func vitals(temp float64) models.Vitals {
	return models.Vitals{
		Age:         f64(29),
		SystolicBP:  f64(120),
		DiastolicBP: f64(80),
		BS:          f64(7.1),
		BodyTemp:    f64(temp),
		HeartRate:   f64(76),
	}
}

func riskService(p RiskPredictor) (*RiskService, *db.MemoryStore) {
	store := db.NewMemoryStore()
	svc := New(Deps{Store: store, Predictor: p})
	return svc.Risk, store
}

func TestAssess_ConvertsCelsiusAndStores(t *testing.T) {
	p := &mockPredictor{}
	p.On("Predict", mock.Anything, mock.MatchedBy(func(v models.Vitals) bool {
		return *v.BodyTemp == 98.6
	})).Return(models.Prediction{
		PredictedRiskLevel: "low risk",
		AdviceMessage:      "Keep up routine checkups.",
		Probabilities:      map[string]float64{"low risk": 0.9, "mid risk": 0.08, "high risk": 0.02},
	}, nil).Once()
	svc, store := riskService(p)

	got, err := svc.Assess(context.Background(), "p1", vitals(37))
	require.NoError(t, err)
	p.AssertExpectations(t)

	assert.Equal(t, "low risk", got.PredictedRiskLevel)
	assert.Equal(t, 98.6, *got.Inputs.BodyTemp)
	_, err = store.Get(context.Background(), util.RiskAssessmentCollection, got.ID)
	assert.NoError(t, err)

	history, err := svc.History(context.Background(), "p1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, got.ID, history[0].ID)
}

func TestAssess_KeepsFahrenheit(t *testing.T) {
	p := &mockPredictor{}
	p.On("Predict", mock.Anything, mock.Anything).Return(models.Prediction{PredictedRiskLevel: "mid risk"}, nil)
	svc, _ := riskService(p)

	got, err := svc.Assess(context.Background(), "p1", vitals(100.4))
	require.NoError(t, err)
	assert.Equal(t, 100.4, *got.Inputs.BodyTemp)
}

func TestAssess_Validation(t *testing.T) {
	p := &mockPredictor{}
	svc, _ := riskService(p)

	missing := vitals(98)
	missing.HeartRate = nil
	_, err := svc.Assess(context.Background(), "p1", missing)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	zeroAge := vitals(98)
	zeroAge.Age = f64(0)
	_, err = svc.Assess(context.Background(), "p1", zeroAge)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	fractional := []func(v *models.Vitals){
		func(v *models.Vitals) { v.Age = f64(29.5) },
		func(v *models.Vitals) { v.SystolicBP = f64(120.4) },
		func(v *models.Vitals) { v.DiastolicBP = f64(80.2) },
		func(v *models.Vitals) { v.HeartRate = f64(76.9) },
	}
	for _, mutate := range fractional {
		v := vitals(98)
		mutate(&v)
		_, err = svc.Assess(context.Background(), "p1", v)
		assert.ErrorIs(t, err, util.ErrInvalidArgument)
	}
	p.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestAssess_PredictorErrors(t *testing.T) {
	p := &mockPredictor{}
	p.On("Predict", mock.Anything, mock.Anything).Return(models.Prediction{}, &predictor.StatusError{StatusCode: 422, Detail: "bad input"}).Once()
	p.On("Predict", mock.Anything, mock.Anything).Return(models.Prediction{}, errors.New("connection refused")).Once()
	svc, _ := riskService(p)

	_, err := svc.Assess(context.Background(), "p1", vitals(98))
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
	_, err = svc.Assess(context.Background(), "p1", vitals(98))
	assert.ErrorIs(t, err, util.ErrBackendUnavailable)
}

func TestAssess_NoPredictor(t *testing.T) {
	svc, _ := riskService(nil)
	_, err := svc.Assess(context.Background(), "p1", vitals(98))
	assert.ErrorIs(t, err, util.ErrBackendUnavailable)
}
