package util

// Collections
const (
	UserCollection            = "users"
	LoginCollection           = "logins"
	NurseAssignmentCollection = "nurse_assignments"
	AppointmentCollection     = "appointments"
	RiskAssessmentCollection  = "risk_assessments"
)

// Cache projection kinds
const (
	UserKey = "USER"
)

const DefaultNurseCapacity = 5

// MaxLoginAttempts blocks a login after this many consecutive failures.
const MaxLoginAttempts = 3

// Error codes
const (
	CODE_INVALID_INPUT         = "INVALID_INPUT"
	CODE_PATIENT_NOT_FOUND     = "PATIENT_NOT_FOUND"
	CODE_NURSE_NOT_FOUND       = "NURSE_NOT_FOUND"
	CODE_USER_NOT_FOUND        = "USER_NOT_FOUND"
	CODE_APPOINTMENT_NOT_FOUND = "APPOINTMENT_NOT_FOUND"
	CODE_ALREADY_ASSIGNED      = "ALREADY_ASSIGNED"
	CODE_NOT_ASSIGNED          = "NOT_ASSIGNED"
	CODE_NURSE_AT_CAPACITY     = "NURSE_AT_CAPACITY"
	CODE_NURSE_HAS_PATIENTS    = "NURSE_HAS_PATIENTS"
	CODE_PATIENT_HAS_NURSE     = "PATIENT_HAS_NURSE"
	CODE_BACKEND_UNAVAILABLE   = "BACKEND_UNAVAILABLE"
	CODE_FORBIDDEN             = "FORBIDDEN"
	CODE_UNAUTHENTICATED       = "UNAUTHENTICATED"
	CODE_EMAIL_EXISTS          = "EMAIL_EXISTS"
	CODE_LOGIN_BLOCKED         = "LOGIN_BLOCKED"
	CODE_TOKEN_UNREGISTERED    = "TOKEN_UNREGISTERED"
)

// Messages
const (
	PATIENT_ID_REQUIRED             = "patientId is required"
	NURSE_ID_REQUIRED               = "nurseId is required"
	USER_ID_REQUIRED                = "userId is required"
	PATIENT_NOT_FOUND               = "patient not found or the user is not a patient"
	NURSE_NOT_FOUND                 = "nurse not found or the user is not a nurse"
	USER_NOT_FOUND                  = "user not found"
	APPOINTMENT_NOT_FOUND           = "appointment not found"
	PATIENT_ALREADY_ASSIGNED        = "patient is already assigned to another nurse, reassign instead"
	PATIENT_NOT_ASSIGNED_TO_NURSE   = "patient is not assigned to this nurse"
	PATIENT_NOT_ASSIGNED            = "patient has no assigned nurse"
	NURSE_AT_CAPACITY               = "nurse has reached the patient capacity limit"
	NURSE_STILL_HAS_PATIENTS        = "nurse still has assigned patients"
	PATIENT_STILL_HAS_NURSE         = "patient still has an assigned nurse"
	BACKEND_UNAVAILABLE             = "backend is unavailable, please retry"
	INVALID_CREDENTIALS             = "invalid email or password"
	LOGIN_BLOCKED                   = "login is blocked after too many failed attempts"
	EMAIL_ALREADY_REGISTERED        = "email is already registered"
	PASSWORD_TOO_SHORT              = "password must be at least 8 characters"
	EMAIL_NOT_PROVIDED              = "email is required"
	INVALID_ROLE                    = "invalid role"
	NOT_ALLOWED                     = "the current user is not allowed to perform this action"
	DOCTOR_DOES_NOT_OWN_APPOINTMENT = "not authorized to update this appointment"
	INVALID_APPOINTMENT_STATUS      = "invalid appointment status"
	TOKEN_REQUIRED                  = "device token is required"
	DEVICE_TOKEN_UNREGISTERED       = "device token is unregistered or invalid"
	INVALID_VITALS                  = "invalid vitals"
	MISSING_AUTH_TOKEN              = "missing or malformed authorization header"
	INVALID_AUTH_TOKEN              = "invalid or expired token"
)
