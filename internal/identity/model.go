package identity

// User is the subset of the identity service's user record this service reads.
type User struct {
	ID       int64  `json:"id"`
	UserRole string `json:"userRole"`
}

// Address is one entry of a user's address book.
type Address struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"userId"`
}
