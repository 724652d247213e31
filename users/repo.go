package users

// UserRepo stores the accounts of the dev identity backend.
type UserRepo interface {
	// Create inserts a new user. It fails with errors.ErrConflict when the
	// email is already registered.
	Create(user *User) error
	Update(user *User) error
	GetByEmail(email string) (*User, error)
	GetByID(id string) (*User, error)
	Count() int
}
