package rbac

// Role names. Keep these stable; they are part of the gateway token contract.
const (
	RoleRatingAdmin    = "rating_admin"
	RoleRatingViewer   = "rating_viewer"
	RoleBillingService = "billing_service" // machine caller, lookup only
	RoleSuperAdmin     = "super_admin"
)

func IsSuperAdmin(roles []string) bool {
	for _, r := range roles {
		if r == RoleSuperAdmin {
			return true
		}
	}
	return false
}

// Readers may list and fetch dictionary data.
var Readers = []string{RoleRatingAdmin, RoleRatingViewer}

// Writers may mutate tariffs, rates and destination groups.
var Writers = []string{RoleRatingAdmin}

// LookupCallers may resolve a number to a rate.
var LookupCallers = []string{RoleRatingAdmin, RoleRatingViewer, RoleBillingService}
