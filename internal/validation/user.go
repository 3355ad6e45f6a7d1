package validation

import "arvo/internal/models"

// UserRegistration validates a registration payload.
func (v *Validator) UserRegistration(input *models.CreateUserInput) {
	v.Required("name", input.Name)
	v.Required("email", input.Email)
	v.Required("phone", input.Phone)
	v.Email("email", input.Email)
	v.Phone("phone", input.Phone)
	v.Password("password", input.Password)
	v.MaxLength("password", input.Password, MaxPasswordLength)
}
