package models

// Role names shared by the Auth0 and Directus mappings. The role sets are
// pre-provisioned in both systems; ids below are static configuration, not
// negotiated at runtime.
const (
	RoleAdmin          = "usr_admin"
	RoleOrg            = "usr_org"
	RoleCustomerPaid   = "usr_customer_paid"
	RoleCustomerUnpaid = "usr_customer_unpaid"
	RoleRegular        = "regular"
)

// Auth0RoleIDs maps role names to the role ids assigned in the Auth0 tenant
var Auth0RoleIDs = map[string]string{
	RoleCustomerUnpaid: "rol_tFh4rCsyamZjBwGN",
	RoleCustomerPaid:   "rol_yaTMTaYL5aGVeDsQ",
	RoleOrg:            "rol_jyAjOJwZnWay2Pm1",
	RoleAdmin:          "rol_re1uBbI6Itzl2Kya",
}

// DirectusRoleIDs maps role names to the role ids provisioned in Directus.
// Every Auth0 role maps to at most one Directus role; "regular" is the
// default for principals with no role claims.
var DirectusRoleIDs = map[string]string{
	RoleAdmin:          "4dc29c63-1fb9-4a38-8d3f-7f6fe710a5a3",
	RoleOrg:            "ec02ba93-98f6-4f77-9442-b211ef5adffe",
	RoleCustomerUnpaid: "af0100fc-ff1b-403d-bced-14cdbbc0f13e",
	RoleCustomerPaid:   "28aa8709-7ff3-4c6b-b276-af44536ed465",
	RoleRegular:        "ecd5f898-308d-4cb2-b6e2-f15b6c0d6089",
}

// RolePriority is the fixed precedence used when a principal holds several
// role claims at once: only the highest-priority one is mapped.
var RolePriority = []string{
	RoleAdmin,
	RoleOrg,
	RoleCustomerPaid,
	RoleCustomerUnpaid,
}
