package dto

// LoginRequest entrada para login de operador.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// OperatorResponse salida de un operador (sin hash).
type OperatorResponse struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token string           `json:"token"`
	User  OperatorResponse `json:"user"`
}
