package role

import (
	"sort"
	"strings"
	"time"
)

// Role is the closed set of user roles.
type Role string

const (
	Patient Role = "patient"
	Nurse   Role = "nurse"
	Doctor  Role = "doctor"
	Admin   Role = "admin"
	Unknown Role = "unknown"
)

// Permission is a "<module>:<action>" capability string.
type Permission string

const (
	ProfileView          Permission = "profile:view"
	ProfileUpdate        Permission = "profile:update"
	AppointmentCreate    Permission = "appointment:create"
	AppointmentView      Permission = "appointment:view"
	AppointmentUpdate    Permission = "appointment:update"
	RiskPredict          Permission = "risk:predict"
	NotificationRegister Permission = "notification:register"
	NotificationSend     Permission = "notification:send"
	PatientView          Permission = "patient:view"
	NurseView            Permission = "nurse:view"
	AssignmentManage     Permission = "assignment:manage"
	UserManage           Permission = "user:manage"
	UserView             Permission = "user:view"
	ReportExport         Permission = "report:export"
)

func Of(module, action string) Permission {
	return Permission(module + ":" + action)
}

// Grant is the stored description of a role and its capabilities.
type Grant struct {
	RoleName   string       `json:"roleName" bson:"roleName"`
	RoleCode   Role         `json:"roleCode" bson:"roleCode"`
	Privileges []Permission `json:"privileges" bson:"privileges"`
	CreatedAt  time.Time    `json:"createdAt" bson:"createdAt"`
	CreatedBy  string       `json:"createdBy" bson:"createdBy"`
	UpdatedAt  time.Time    `json:"updatedAt" bson:"updatedAt"`
	UpdatedBy  string       `json:"updatedBy" bson:"updatedBy"`
}

var (
	patientPerms = []Permission{ProfileView, ProfileUpdate, AppointmentCreate, AppointmentView, RiskPredict, NotificationRegister}
	nursePerms   = []Permission{ProfileView, ProfileUpdate, PatientView, AppointmentView, NotificationRegister}
	doctorPerms  = append(append([]Permission{}, nursePerms...), NurseView, AssignmentManage, AppointmentUpdate)
	adminPerms   = union(patientPerms, doctorPerms, []Permission{UserManage, UserView, ReportExport, NotificationSend})
)

/*
* Unknown or unrecognized strings get the Unknown role
* Case and surrounding spaces are ignored
 */
func Parse(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case Patient, Nurse, Doctor, Admin:
		return r
	default:
		return Unknown
	}
}

func (r Role) Valid() bool {
	return Parse(string(r)) == r && r != Unknown
}

// DefaultPermissions returns a fresh copy of the capability set for r.
func DefaultPermissions(r Role) []Permission {
	var src []Permission
	switch r {
	case Patient:
		src = patientPerms
	case Nurse:
		src = nursePerms
	case Doctor:
		src = doctorPerms
	case Admin:
		src = adminPerms
	}
	out := make([]Permission, len(src))
	copy(out, src)
	return out
}

func DefaultGrant(r Role, by string) Grant {
	now := time.Now().UTC()
	return Grant{
		RoleName:   strings.ToUpper(string(r[:1])) + string(r[1:]),
		RoleCode:   r,
		Privileges: DefaultPermissions(r),
		CreatedAt:  now,
		CreatedBy:  by,
		UpdatedAt:  now,
		UpdatedBy:  by,
	}
}

func Has(perms []Permission, p Permission) bool {
	for _, have := range perms {
		if have == p {
			return true
		}
	}
	return false
}

func Strings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func FromStrings(ss []string) []Permission {
	out := make([]Permission, len(ss))
	for i, s := range ss {
		out[i] = Permission(s)
	}
	return out
}

func union(sets ...[]Permission) []Permission {
	seen := map[Permission]struct{}{}
	var out []Permission
	for _, set := range sets {
		for _, p := range set {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
