package controllers

var allowedRoles = map[string]struct{}{
	"admin":     {},
	"candidate": {},
}

func IsValidRole(role string) bool {
	_, ok := allowedRoles[role]
	return ok
}
