package models

import (
	"time"

	"MamaCare/role"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type User struct {
	ID                 string     `json:"id" bson:"_id"`
	Name               string     `json:"name" bson:"name"`
	Email              string     `json:"email" bson:"email"`
	EmailVerified      bool       `json:"emailVerified" bson:"emailVerified"`
	Role               role.Role  `json:"role" bson:"role"`
	CurrentPatientLoad int64      `json:"currentPatientLoad" bson:"currentPatientLoad"`
	AssignedNurseID    string     `json:"assignedNurseId,omitempty" bson:"assignedNurseId,omitempty"`
	AssignedAt         *time.Time `json:"assignedAt,omitempty" bson:"assignedAt,omitempty"`
	Permissions        []string   `json:"permissions" bson:"permissions"`
	TokenVersion       int64      `json:"tokenVersion" bson:"tokenVersion"`
	Specialty          string     `json:"specialty,omitempty" bson:"specialty,omitempty"`
	Department         string     `json:"department,omitempty" bson:"department,omitempty"`
	PhoneNo            string     `json:"phoneNo,omitempty" bson:"phoneNo,omitempty"`
	FCMTokens          Tokens     `json:"-" bson:"fcmTokens,omitempty"`
	CreatedAt          time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Tokens holds device tokens. Older documents store a single token as a
// plain string.
type Tokens []string

func (t *Tokens) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: typ, Value: data}
	switch typ {
	case bsontype.String:
		if s := raw.StringValue(); s != "" {
			*t = Tokens{s}
		} else {
			*t = nil
		}
		return nil
	case bsontype.Null, bsontype.Undefined:
		*t = nil
		return nil
	default:
		var list []string
		if err := raw.Unmarshal(&list); err != nil {
			return err
		}
		*t = list
		return nil
	}
}

// ProfileUpdate carries the fields a user may change on their own profile.
type ProfileUpdate struct {
	Name       *string `json:"name"`
	PhoneNo    *string `json:"phoneNo"`
	Specialty  *string `json:"specialty"`
	Department *string `json:"department"`
}

type RoleChange struct {
	Role string `json:"role" binding:"required"`
}
