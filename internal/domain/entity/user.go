package entity

// Roles de operador.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Operator usuario que dispara y sigue ejecuciones desde la API.
type Operator struct {
	Username     string
	Name         string
	Role         string // admin, user
	PasswordHash string // PBKDF2-SHA256 (o bcrypt legado), nunca la contraseña
}
