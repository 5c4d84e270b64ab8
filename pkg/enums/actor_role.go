package enums

// ActorRole identifies who is acting on the marketplace.
type ActorRole string

const (
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleMerchant ActorRole = "merchant"
	ActorRoleAdmin    ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	ActorRoleCustomer,
	ActorRoleMerchant,
	ActorRoleAdmin,
}

// String implements fmt.Stringer.
func (a ActorRole) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActorRole.
func (a ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == a {
			return true
		}
	}
	return false
}
