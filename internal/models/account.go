package models

// AccountIdentity: неизменяемое описание аккаунта, собирается из конфига один раз на старте.
type AccountIdentity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Simulated bool   `json:"simulated"`
}
