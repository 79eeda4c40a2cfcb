// Package tokens implementa el ciclo de vida de los tokens almacenados:
// validación on-demand contra el proveedor y refresh con persistencia.
// Los controllers traducen estos sentinels a códigos HTTP.
package tokens

import "errors"

var (
	// ErrCustomerNotFound: el customer id no existe.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrNotLinked: el customer existe pero no tiene el proveedor vinculado.
	ErrNotLinked = errors.New("provider not linked")
	// ErrInvalidToken: el proveedor rechazó el token almacenado.
	ErrInvalidToken = errors.New("stored token is invalid")
	// ErrRefreshRejected: el proveedor rechazó el refresh token.
	ErrRefreshRejected = errors.New("provider rejected refresh")
	// ErrSaveFailed: el refresh fue exitoso pero no se pudo persistir.
	ErrSaveFailed = errors.New("token save failed")
)
