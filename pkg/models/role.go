package models

// Role represents an actor's privilege tier.
type Role string

// Role constants, lowest to highest privilege.
const (
	RoleGuest     Role = "guest"
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// roleLevels orders roles for AtLeast comparisons.
var roleLevels = map[Role]int{
	RoleGuest:     0,
	RoleUser:      1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// IsValidRole checks if the given role is valid.
func IsValidRole(r Role) bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast reports whether the role meets or exceeds the required tier.
// Unknown roles never qualify.
func (r Role) AtLeast(required Role) bool {
	level, ok := roleLevels[r]
	if !ok {
		return false
	}
	return level >= roleLevels[required]
}

func (r Role) String() string {
	return string(r)
}
