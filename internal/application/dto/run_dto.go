package dto

// StartRunRequest entrada de POST /api/runs. Competencia vacía = mes anterior;
// Clientes vacío = todos los activos.
type StartRunRequest struct {
	Competencia string   `json:"competencia" validate:"omitempty,len=7"`
	Clientes    []string `json:"clientes"`
}

// StartRunResponse ejecución aceptada.
type StartRunResponse struct {
	RunID       string `json:"run_id"`
	Competencia string `json:"competencia"`
}

// ClientResponse fila activa del roster (sin credenciales).
type ClientResponse struct {
	Empresa    string `json:"empresa"`
	CNPJ       string `json:"cnpj"`
	TipoAcesso string `json:"tipo_acesso"`
	Prefeitura string `json:"prefeitura,omitempty"`
}
