package identity

import (
	"github.com/wallysom2/egua-cli/internal/authapi"
)

// Role classifies what a signed-in user can do in the platform.
type Role string

const (
	RoleLearner   Role = "aluno"
	RoleTeacher   Role = "professor"
	RoleDeveloper Role = "desenvolvedor"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleTeacher, RoleDeveloper:
		return true
	}
	return false
}

// DefaultDisplayName is used when the principal carries no name.
const DefaultDisplayName = "Usuário"

// Identity is the application-facing view of a signed-in user. It is
// derived from the raw principal on every session change and never
// persisted client-side.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"nome"`
	Role        Role   `json:"tipo_usuario"`
	Active      bool   `json:"ativo"`
}

// FromPrincipal maps the raw auth-backend user to an Identity. Missing
// metadata degrades to defaults: role aluno, placeholder display name,
// active true.
func FromPrincipal(u *authapi.User) Identity {
	id := Identity{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: DefaultDisplayName,
		Role:        RoleLearner,
		Active:      true,
	}

	meta := u.UserMetadata
	if meta == nil {
		return id
	}

	if nome, ok := meta["nome"].(string); ok && nome != "" {
		id.DisplayName = nome
	}
	if tipo, ok := meta["tipo_usuario"].(string); ok {
		if role := Role(tipo); role.Valid() {
			id.Role = role
		}
	}
	if ativo, ok := meta["ativo"].(bool); ok {
		id.Active = ativo
	}

	return id
}
