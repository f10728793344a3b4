package responses

import (
	"encoding/json"
	"time"

	"github.com/caldera-store/caldera/pkg/authz"
)

type Profile struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type User struct {
	Id       string   `json:"id"`
	Username string   `json:"username"`
	Profile  *Profile `json:"profile,omitempty"`
}

type Channel struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

type Package struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Channel     string `json:"channel,omitempty"`
}

type Member struct {
	Role string `json:"role"`
	User User   `json:"user"`
}

type PackageVersion struct {
	Platform    string          `json:"platform"`
	Version     string          `json:"version"`
	BuildNumber int             `json:"build_number"`
	BuildString string          `json:"build_string"`
	Filename    string          `json:"filename"`
	Info        json.RawMessage `json:"info"`
	Uploader    Profile         `json:"uploader"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ApiKey lists a key's tuples. The raw secret appears only in the
// creation response, never in listings.
type ApiKey struct {
	Key         string         `json:"key,omitempty"`
	Description string         `json:"description"`
	Roles       []authz.CPRole `json:"roles"`
}

type Error struct {
	Detail string `json:"detail"`
}
