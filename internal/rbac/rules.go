package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"parent": {
		"homework:view",
		"homework:submit",
		"homework:complete",
		"session:create",
		"session:move",
		"session:check",
		"session:retry",
		"session:reopen",
		"session:view",
		"upload:create",
	},
	"teacher": {
		"homework:create",
		"homework:view",
		"children:create",
	},
	"admin": {
		"*", // everything
	},
}
