package requests

import "github.com/caldera-store/caldera/pkg/authz"

type Channel struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

type Package struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PostMember struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type ApiKey struct {
	Description string         `json:"description"`
	Roles       []authz.CPRole `json:"roles"`
}
