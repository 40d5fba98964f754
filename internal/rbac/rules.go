package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"session:enter",
		"session:view-own",
		"session:answer",
		"session:submit",
	},
	"teacher": {
		"bank:create",
		"bank:view",
		"bank:trash",
		"bank:generate",
		"exam:create",
		"exam:view",
		"exam:delete",
		"exam:print",
		"publication:create",
		"publication:manage",
		"session:view-all",
		"session:monitor",
		"grading:view",
		"grading:override",
	},
	"admin": {
		"*", // everything
	},
}
