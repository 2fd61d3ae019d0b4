package domain

type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleGestionnaire Role = "GESTIONNAIRE"
	RoleMagasinier   Role = "MAGASINIER"
	RoleDemandeur    Role = "DEMANDEUR"
)
