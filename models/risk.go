package models

import "time"

// Vitals are the predictor inputs. BodyTemp is Fahrenheit once normalized.
// Age, the blood pressures and the heart rate must be whole numbers.
type Vitals struct {
	Age         *float64 `json:"age" bson:"age"`
	SystolicBP  *float64 `json:"systolicBP" bson:"systolicBP"`
	DiastolicBP *float64 `json:"diastolicBP" bson:"diastolicBP"`
	BS          *float64 `json:"bs" bson:"bs"`
	BodyTemp    *float64 `json:"bodyTemp" bson:"bodyTemp"`
	HeartRate   *float64 `json:"heartRate" bson:"heartRate"`
}

type Prediction struct {
	PredictedRiskLevel string             `json:"predicted_risk_level"`
	AdviceMessage      string             `json:"advice_message"`
	Probabilities      map[string]float64 `json:"probabilities"`
}

type RiskAssessment struct {
	ID                 string             `json:"id" bson:"_id"`
	PatientID          string             `json:"patientId" bson:"patientId"`
	Inputs             Vitals             `json:"inputs" bson:"inputs"`
	PredictedRiskLevel string             `json:"predictedRiskLevel" bson:"predictedRiskLevel"`
	Advice             string             `json:"advice" bson:"advice"`
	Probabilities      map[string]float64 `json:"probabilities" bson:"probabilities"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
}
